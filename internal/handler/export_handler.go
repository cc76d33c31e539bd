package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/export"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

// Response headers set on exports.
const (
	HeaderCacheHit       = "X-Cache-Hit"
	HeaderRosterRevision = "X-Roster-Revision"
)

// ExportHandler serves roster downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Students godoc
// @Summary Download the current roster view
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Success 200
// @Router /exports/students [get]
func (h *ExportHandler) Students(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid format"))
		return
	}
	result, err := h.exports.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header(HeaderCacheHit, strconv.FormatBool(result.CacheHit))
	c.Header(HeaderRosterRevision, strconv.FormatUint(result.Revision, 10))
	response.Attachment(c, result.Filename, result.ContentType, result.Payload)
}
