package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
	"github.com/noah-isme/sma-roster-api/pkg/export"
)

type rosterSnapshotter interface {
	Snapshot() RosterSnapshot
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled  bool
	Title    string
	CacheTTL time.Duration
}

// ExportResult is a rendered document ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
	Records     int
	Revision    uint64
	CacheHit    bool
}

// ExportService renders the current roster view as CSV or PDF.
type ExportService struct {
	session rosterSnapshotter
	cache   *CacheService
	csv     csvRenderer
	pdf     pdfRenderer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export defaults.
func NewExportService(session rosterSnapshotter, cache *CacheService, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Title == "" {
		cfg.Title = "Student Roster"
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		session: session,
		cache:   cache,
		csv:     csv,
		pdf:     pdf,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Export renders the view the session currently shows.
func (s *ExportService) Export(ctx context.Context, format export.Format) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrDisabled, "exports are disabled")
	}
	start := time.Now()
	snap := s.session.Snapshot()
	result := &ExportResult{
		Filename:    fmt.Sprintf("roster-r%d.%s", snap.Revision, format),
		ContentType: format.ContentType(),
		Records:     len(snap.View),
		Revision:    snap.Revision,
	}

	key := exportCacheKey(format, snap)
	if payload, hit := s.cache.Get(ctx, key); hit {
		result.Payload = payload
		result.CacheHit = true
		return result, nil
	}

	dataset := buildRosterDataset(snap.View)
	var (
		payload []byte
		err     error
	)
	switch format {
	case export.FormatCSV:
		payload, err = s.csv.Render(dataset)
	case export.FormatPDF:
		payload, err = s.pdf.Render(dataset, s.cfg.Title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	_ = s.cache.Set(ctx, key, payload, s.cfg.CacheTTL)

	s.metrics.ObserveExport(string(format), time.Since(start))
	s.logger.Info("roster exported",
		zap.String("format", string(format)),
		zap.Int("records", len(snap.View)),
		zap.Uint64("revision", snap.Revision))

	result.Payload = payload
	return result, nil
}

// Revisions restart with every roster instance, so the instance scopes them.
// Entries from another process sharing the cache are never served.
func exportCacheKey(format export.Format, snap RosterSnapshot) string {
	return fmt.Sprintf("export:%s:%s:%d:%s", format, snap.Instance, snap.Revision, snap.Query.Fingerprint())
}

func buildRosterDataset(students []models.Student) export.Dataset {
	rows := make([][]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, []string{
			st.Roll,
			st.Name,
			string(st.Dept),
			string(st.Year),
			strconv.FormatFloat(st.CGPA, 'f', 2, 64),
		})
	}
	return export.Dataset{
		Headers: []string{"Roll", "Name", "Department", "Year", "CGPA"},
		Rows:    rows,
	}
}
