package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roadready/roadready-api/internal/models"
	appErrors "github.com/roadready/roadready-api/pkg/errors"
	"github.com/roadready/roadready-api/pkg/export"
)

type trainingGetter interface {
	Get(ctx context.Context, trainingID string) (*models.TrainingDetail, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	ExportPDF ExportFormat = "pdf"
	ExportCSV ExportFormat = "csv"
)

// ExportResult carries the rendered bytes and response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders a training's score sheets into a printable
// document.
type ExportService struct {
	trainings trainingGetter
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
	logger    *zap.Logger
}

// NewExportService builds the service.
func NewExportService(trainings trainingGetter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		trainings: trainings,
		pdf:       export.NewPDFExporter(),
		csv:       export.NewCSVExporter(),
		logger:    logger,
	}
}

// Render produces the export for one training.
func (s *ExportService) Render(ctx context.Context, trainingID string, format ExportFormat) (*ExportResult, error) {
	detail, err := s.trainings.Get(ctx, trainingID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Sheet", "Created", "Updated", "Data"},
	}
	for i, sheet := range detail.ScoreSheets {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Sheet":   fmt.Sprintf("%d", i+1),
			"Created": sheet.CreatedAt.Format(time.RFC3339),
			"Updated": sheet.UpdatedAt.Format(time.RFC3339),
			"Data":    string(sheet.Data),
		})
	}

	title := fmt.Sprintf("Training %s - %s with %s", detail.StartTime.Format("2006-01-02 15:04"), detail.LearnerName, detail.InstructorName)

	switch format {
	case ExportCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("training-%s.csv", trainingID),
		}, nil
	case ExportPDF, "":
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("training-%s.pdf", trainingID),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
