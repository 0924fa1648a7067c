package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/booking-api/internal/models"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
	"github.com/clinicore/booking-api/pkg/export"
	"github.com/clinicore/booking-api/pkg/storage"
)

type daySheetSource interface {
	ListByDate(ctx context.Context, date string) ([]models.AppointmentDetail, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// DaySheetConfig tunes day-sheet export behaviour.
type DaySheetConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// DaySheetResult captures successful generation metadata.
type DaySheetResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.DaySheetFormat
	ExpiresAt    time.Time
}

// DaySheetService renders one day's appointment schedule to CSV or PDF
// and hands out signed download links for the stored file.
type DaySheetService struct {
	source  daySheetSource
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     DaySheetConfig
}

// NewDaySheetService constructs a DaySheetService.
func NewDaySheetService(source daySheetSource, files fileStorage, signer *storage.SignedURLSigner, cfg DaySheetConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *DaySheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &DaySheetService{
		source:  source,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the day sheet for a date and stores the export.
func (s *DaySheetService) Generate(ctx context.Context, date string, format models.DaySheetFormat) (*DaySheetResult, error) {
	if format != models.DaySheetCSV && format != models.DaySheetPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	details, err := s.source.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	dataset := buildDaySheetDataset(details)
	title := fmt.Sprintf("Day Sheet %s", date)

	var payload []byte
	switch format {
	case models.DaySheetCSV:
		payload, err = s.csv.Render(dataset)
	case models.DaySheetPDF:
		payload, err = s.pdf.Render(dataset, title)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render day sheet")
	}

	exportID := uuid.NewString()
	filename := fmt.Sprintf("daysheet_%s_%s.%s", date, time.Now().UTC().Format("20060102_150405"), format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store day sheet")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("day sheet generated",
		zap.String("date", date),
		zap.String("format", string(format)),
		zap.String("file", relPath))
	return &DaySheetResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/appointments/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// Open validates a download token and returns a handle to the stored file.
func (s *DaySheetService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, relPath, nil
}

// Cleanup removes exports older than the configured TTL.
func (s *DaySheetService) Cleanup() ([]string, error) {
	return s.storage.CleanupOlderThan(s.cfg.ResultTTL)
}

func buildDaySheetDataset(details []models.AppointmentDetail) export.Dataset {
	headers := []string{"Start", "End", "Patient", "Email", "Phone", "Status", "Booked At"}
	rows := make([]map[string]string, 0, len(details))
	for _, d := range details {
		rows = append(rows, map[string]string{
			"Start":     d.Slot.StartTime,
			"End":       d.Slot.EndTime,
			"Patient":   d.User.Username,
			"Email":     d.User.Email,
			"Phone":     d.User.PhoneNumber,
			"Status":    string(d.Status),
			"Booked At": d.CreatedAt.Format(time.RFC3339),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
