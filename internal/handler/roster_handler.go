package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-roster-api/internal/dto"
	"github.com/noah-isme/sma-roster-api/internal/models"
	"github.com/noah-isme/sma-roster-api/internal/service"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/response"
)

// RosterHandler exposes the roster and its session intents.
type RosterHandler struct {
	session *service.SessionService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(session *service.SessionService) *RosterHandler {
	return &RosterHandler{session: session}
}

// List godoc
// @Summary List the current roster view
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *RosterHandler) List(c *gin.Context) {
	snap := h.session.Snapshot()
	response.JSON(c, http.StatusOK, snap.View, map[string]interface{}{
		"total":    snap.Total,
		"visible":  len(snap.View),
		"revision": snap.Revision,
		"query":    snap.Query,
	})
}

// Get godoc
// @Summary Get a student by roll
// @Tags Students
// @Produce json
// @Param roll path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Router /students/{roll} [get]
func (h *RosterHandler) Get(c *gin.Context) {
	student, err := h.session.Get(c.Param("roll"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// Save godoc
// @Summary Save the form: create when idle, update the edited record otherwise
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.SaveStudentRequest true "Student form"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *RosterHandler) Save(c *gin.Context) {
	var req dto.SaveStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.session.Save(req.Input())
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Updated {
		response.JSON(c, http.StatusOK, result)
		return
	}
	response.Created(c, result)
}

// Delete godoc
// @Summary Delete a student; unknown rolls are ignored
// @Tags Students
// @Param roll path string true "Roll number"
// @Success 204
// @Router /students/{roll} [delete]
func (h *RosterHandler) Delete(c *gin.Context) {
	h.session.Delete(c.Param("roll"))
	response.NoContent(c)
}

// Session godoc
// @Summary Current session mode and query state
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *RosterHandler) Session(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.session.State())
}

// StartEdit godoc
// @Summary Start editing a student and return the prefilled form
// @Tags Session
// @Produce json
// @Param roll path string true "Roll number"
// @Success 200 {object} response.Envelope
// @Router /session/edit/{roll} [post]
func (h *RosterHandler) StartEdit(c *gin.Context) {
	form, err := h.session.StartEdit(c.Param("roll"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EditResponse{Form: *form, Session: h.session.State()})
}

// CancelEdit godoc
// @Summary Clear the form and leave edit mode
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session/edit [delete]
func (h *RosterHandler) CancelEdit(c *gin.Context) {
	h.session.ClearForm()
	response.JSON(c, http.StatusOK, h.session.State())
}

// Validate godoc
// @Summary Validate a form without saving it
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.SaveStudentRequest true "Student form"
// @Success 200 {object} response.Envelope
// @Router /session/validate [post]
func (h *RosterHandler) Validate(c *gin.Context) {
	var req dto.SaveStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fields := h.session.Validate(req.Input())
	response.JSON(c, http.StatusOK, dto.ValidationResponse{Valid: len(fields) == 0, Fields: fields})
}

// Search godoc
// @Summary Replace the search text
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.SearchRequest true "Search text"
// @Success 200 {object} response.Envelope
// @Router /session/search [put]
func (h *RosterHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	h.session.SetSearch(req.Query)
	response.JSON(c, http.StatusOK, h.session.State())
}

// SetFilter godoc
// @Summary Set or clear the dept or year filter
// @Tags Session
// @Accept json
// @Produce json
// @Param field path string true "dept or year"
// @Param payload body dto.FilterRequest true "Filter value"
// @Success 200 {object} response.Envelope
// @Router /session/filters/{field} [put]
func (h *RosterHandler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.session.SetFilter(c.Param("field"), strings.TrimSpace(req.Value)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.session.State())
}

// ClearFilters godoc
// @Summary Reset search, filters and sorting
// @Tags Session
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /session/filters [delete]
func (h *RosterHandler) ClearFilters(c *gin.Context) {
	h.session.ClearFilters()
	response.JSON(c, http.StatusOK, h.session.State())
}

// Sort godoc
// @Summary Toggle sorting by name or cgpa
// @Tags Session
// @Accept json
// @Produce json
// @Param payload body dto.SortRequest true "Sort field"
// @Success 200 {object} response.Envelope
// @Router /session/sort [post]
func (h *RosterHandler) Sort(c *gin.Context) {
	var req dto.SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if _, err := h.session.SetSort(models.SortField(req.Field)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.session.State())
}
