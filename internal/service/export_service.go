package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/pkg/config"
	appErrors "github.com/signalflags/signalflags-api/pkg/errors"
	"github.com/signalflags/signalflags-api/pkg/export"
)

// ExportFormat names a supported standings export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportService renders leaderboard standings as downloadable documents.
type ExportService struct {
	leaderboard *LeaderboardService
	cfg         config.ExportsConfig
	logger      *zap.Logger
	renderers   map[ExportFormat]tableRenderer
}

// NewExportService wires the CSV and PDF renderers.
func NewExportService(leaderboard *LeaderboardService, cfg config.ExportsConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 500
	}
	return &ExportService{
		leaderboard: leaderboard,
		cfg:         cfg,
		logger:      logger,
		renderers: map[ExportFormat]tableRenderer{
			FormatCSV: export.NewCSVExporter(),
			FormatPDF: export.NewPDFExporter(),
		},
	}
}

// ExportStandings pages the leaderboard from the top, up to the configured
// row cap, and renders it in the requested format. Returns the document
// bytes, a suggested filename and the content type.
func (s *ExportService) ExportStandings(ctx context.Context, format ExportFormat) ([]byte, string, string, error) {
	if !s.cfg.Enabled {
		return nil, "", "", appErrors.Clone(appErrors.ErrForbidden, "standings exports are disabled")
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	entries, err := s.collectStandings(ctx)
	if err != nil {
		return nil, "", "", err
	}

	table := export.Table{
		Title:   "Signal Flags Leaderboard",
		Columns: []string{"Rank", "Name", "Rating", "Score", "Accuracy", "Time (s)", "Submitted"},
		Rows:    make([][]string, 0, len(entries)),
	}
	for _, entry := range entries {
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(entry.Rank),
			entry.DisplayName,
			strconv.Itoa(entry.Rating),
			fmt.Sprintf("%d/%d", entry.Score, entry.TotalQuestions),
			fmt.Sprintf("%.1f%%", entry.Accuracy),
			fmt.Sprintf("%.1f", entry.TotalTimeSeconds),
			entry.SubmittedAt.Format("2006-01-02 15:04"),
		})
	}

	data, err := renderer.Render(table)
	if err != nil {
		s.logger.Error("standings export failed", zap.String("format", string(format)), zap.Error(err))
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("leaderboard_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	contentType := "text/csv"
	if format == FormatPDF {
		contentType = "application/pdf"
	}
	return data, filename, contentType, nil
}

func (s *ExportService) collectStandings(ctx context.Context) ([]models.LeaderboardEntry, error) {
	entries := make([]models.LeaderboardEntry, 0, s.cfg.MaxRows)

	page, err := s.leaderboard.GetLeaderboardInitial(ctx, s.cfg.MaxRows)
	if err != nil {
		return nil, err
	}
	entries = append(entries, page.Entries...)

	for page.HasMore && len(entries) < s.cfg.MaxRows {
		page, err = s.leaderboard.GetLeaderboardPaginated(ctx, page.NextCursor, s.cfg.MaxRows-len(entries), len(entries)+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.Entries...)
	}

	if len(entries) > s.cfg.MaxRows {
		entries = entries[:s.cfg.MaxRows]
	}
	return entries, nil
}
