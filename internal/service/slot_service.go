package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/clinicore/booking-api/internal/models"
	"github.com/clinicore/booking-api/internal/repository"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
)

type slotRepository interface {
	ListByDate(ctx context.Context, date string) ([]models.Slot, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	ExistsByDateAndStart(ctx context.Context, date, startTime string) (bool, error)
	Create(ctx context.Context, slot *models.Slot) error
}

type slotCascadeRepository interface {
	DeleteSlotCascade(ctx context.Context, slotID string) (int64, error)
}

// SlotService handles the slot calendar: listing per day, admin-created
// ad-hoc slots and cascade removal of a slot with its appointments.
type SlotService struct {
	slots     slotRepository
	cascade   slotCascadeRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSlotService constructs the slot service.
func NewSlotService(slots slotRepository, cascade slotCascadeRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{slots: slots, cascade: cascade, cache: cache, validator: validate, logger: logger}
}

// ListByDate returns the slot grid for one day ordered by start time.
// An empty day yields an empty list, not an error.
func (s *SlotService) ListByDate(ctx context.Context, date string) ([]models.Slot, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	key := repository.CacheKeySlotsByDate + date
	var cached []models.Slot
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	slots, err := s.slots.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list slots")
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	_ = s.cache.Set(ctx, key, slots, 0)
	return slots, nil
}

// Get returns a single slot by id.
func (s *SlotService) Get(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSlotNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	return slot, nil
}

// Create registers an ad-hoc slot outside the generated grid. The
// (date, start time) pair must be free.
func (s *SlotService) Create(ctx context.Context, req models.CreateSlotRequest) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	exists, err := s.slots.ExistsByDateAndStart(ctx, req.Date, req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	if exists {
		return nil, appErrors.ErrSlotExists
	}

	sortOrder := start.Hour() * 2
	if start.Minute() >= 30 {
		sortOrder++
	}
	slot := &models.Slot{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		SlotAt:    time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, time.Local),
		SortOrder: sortOrder,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create slot")
	}

	_ = s.cache.Invalidate(ctx, repository.CacheKeySlotsByDate+req.Date+"*")
	s.logger.Info("slot created",
		zap.String("slot_id", slot.ID),
		zap.String("date", slot.Date),
		zap.String("start_time", slot.StartTime))
	return slot, nil
}

// Delete removes a slot together with any appointments booked on it.
func (s *SlotService) Delete(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "slot id required")
	}
	removed, err := s.cascade.DeleteSlotCascade(ctx, id)
	if err != nil {
		return 0, appErrors.FromError(err)
	}

	_ = s.cache.Invalidate(ctx, repository.CacheKeySlotsByDate+"*")
	_ = s.cache.Invalidate(ctx, repository.CacheKeyAppointmentsByDate+"*")
	s.logger.Info("slot deleted",
		zap.String("slot_id", id),
		zap.Int64("appointments_removed", removed))
	return removed, nil
}
