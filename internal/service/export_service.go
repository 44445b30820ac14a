package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dayoff-api/internal/dto"
	"github.com/noah-isme/dayoff-api/internal/models"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
	"github.com/noah-isme/dayoff-api/pkg/export"
)

type leaveReader interface {
	Archive(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) ([]models.LeaveApplication, error)
	Get(ctx context.Context, id string, viewer models.Identity) (*models.LeaveApplication, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderLetter(letter export.Letter) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var archiveHeaders = []string{"id", "applicant", "role", "class", "track", "type", "start", "end", "days", "status", "applied"}

// ExportService renders reviewer archives and generated letters.
type ExportService struct {
	leaves leaveReader
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(leaves leaveReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{leaves: leaves, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportArchive renders reviewer's filtered archive as CSV or PDF.
func (s *ExportService) ExportArchive(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) (*ExportFile, error) {
	format, ok := export.ParseFormat(query.Format)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	apps, err := s.leaves.Archive(ctx, reviewer, query)
	if err != nil {
		return nil, err
	}

	dataset := archiveDataset(apps)
	var body []byte
	switch format {
	case export.FormatPDF:
		body, err = s.pdf.Render(dataset, fmt.Sprintf("Leave archive - %s", reviewer.Name))
	default:
		body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render archive export")
	}

	s.logger.Info("archive exported", zap.String("reviewer_id", reviewer.ID), zap.String("format", string(format)), zap.Int("rows", len(apps)))
	return &ExportFile{
		Filename:    fmt.Sprintf("leave_archive_%s_%s.%s", sanitizeFilename(reviewer.ID), s.now().UTC().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// LetterPDF renders the generated letter of an application.
func (s *ExportService) LetterPDF(ctx context.Context, id string, viewer models.Identity) (*ExportFile, error) {
	app, err := s.leaves.Get(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(app.AILetter) == "" || app.AILetter == FallbackLetter {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no generated letter is available for this application")
	}

	body, err := s.pdf.RenderLetter(export.Letter{
		Title:     "Leave Application",
		Reference: app.ID,
		Applicant: applicantLabel(app),
		Period:    fmt.Sprintf("%s to %s (%d day(s))", app.StartDate.Format(dto.DateLayout), app.EndDate.Format(dto.DateLayout), app.DurationDays()),
		Status:    string(app.Status),
		Body:      app.AILetter,
		IssuedAt:  app.AppliedDate,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render letter")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("leave_letter_%s.pdf", sanitizeFilename(app.ID)),
		ContentType: export.FormatPDF.ContentType(),
		Body:        body,
	}, nil
}

func archiveDataset(apps []models.LeaveApplication) export.Dataset {
	rows := make([]map[string]string, 0, len(apps))
	for i := range apps {
		app := &apps[i]
		class, track := "", ""
		if app.StudentClass != nil {
			class = string(*app.StudentClass)
			track = app.StudentClass.Track()
		}
		rows = append(rows, map[string]string{
			"id":        app.ID,
			"applicant": app.ApplicantName,
			"role":      string(app.ApplicantRole),
			"class":     class,
			"track":     track,
			"type":      string(app.Type),
			"start":     app.StartDate.Format(dto.DateLayout),
			"end":       app.EndDate.Format(dto.DateLayout),
			"days":      strconv.Itoa(app.DurationDays()),
			"status":    string(app.Status),
			"applied":   app.AppliedDate.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: archiveHeaders, Rows: rows}
}

func applicantLabel(app *models.LeaveApplication) string {
	if app.StudentClass != nil {
		return fmt.Sprintf("%s (%s)", app.ApplicantName, *app.StudentClass)
	}
	return app.ApplicantName
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
