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

type bookingTxRepository interface {
	Book(ctx context.Context, slotID, userID string) (*models.Appointment, error)
	Cancel(ctx context.Context, slotID, userID string) error
}

type appointmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	FindDetailForUser(ctx context.Context, id, userID string) (*models.AppointmentDetail, error)
	ListByUser(ctx context.Context, userID string) ([]models.AppointmentDetail, error)
	ListAll(ctx context.Context) ([]models.AppointmentDetail, error)
	ListBySlotIDs(ctx context.Context, slotIDs []string) ([]models.AppointmentDetail, error)
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
}

type slotIDLister interface {
	ListIDsByDate(ctx context.Context, date string) ([]string, error)
}

// BookingService handles the appointment lifecycle: booking a free slot,
// cancelling, status updates and the patient/admin listings.
type BookingService struct {
	tx           bookingTxRepository
	appointments appointmentRepository
	slotIDs      slotIDLister
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewBookingService constructs the booking service.
func NewBookingService(tx bookingTxRepository, appointments appointmentRepository, slotIDs slotIDLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		tx:           tx,
		appointments: appointments,
		slotIDs:      slotIDs,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Book claims the slot for the patient and creates a pending appointment.
// The claim and the insert commit together; a taken slot yields a conflict.
func (s *BookingService) Book(ctx context.Context, slotID, userID string) (*models.Appointment, error) {
	if slotID == "" || userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot id and user id required")
	}

	appt, err := s.tx.Book(ctx, slotID, userID)
	if err != nil {
		switch {
		case errors.Is(err, appErrors.ErrSlotAlreadyBooked):
			s.metrics.CountBooking("conflict")
		case errors.Is(err, appErrors.ErrSlotNotFound):
			s.metrics.CountBooking("not_found")
		default:
			s.metrics.CountBooking("error")
		}
		return nil, appErrors.FromError(err)
	}

	s.metrics.CountBooking("booked")
	s.invalidateListings(ctx)
	s.logger.Info("slot booked",
		zap.String("appointment_id", appt.ID),
		zap.String("slot_id", slotID),
		zap.String("user_id", userID))
	return appt, nil
}

// Cancel releases the slot and removes the patient's appointment on it.
func (s *BookingService) Cancel(ctx context.Context, slotID, userID string) error {
	if slotID == "" || userID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "slot id and user id required")
	}

	if err := s.tx.Cancel(ctx, slotID, userID); err != nil {
		return appErrors.FromError(err)
	}

	s.invalidateListings(ctx)
	s.logger.Info("appointment cancelled",
		zap.String("slot_id", slotID),
		zap.String("user_id", userID))
	return nil
}

// UpdateStatus advances an appointment's status. A pending appointment
// always transitions to Completed no matter which status was requested;
// appointments in any other state are returned unchanged.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, req models.UpdateAppointmentStatusRequest) (*models.Appointment, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment id required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAppointmentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}

	if appt.Status != models.StatusPending {
		return appt, nil
	}

	if err := s.appointments.UpdateStatus(ctx, id, models.StatusCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
	}
	appt.Status = models.StatusCompleted

	s.invalidateListings(ctx)
	s.logger.Info("appointment completed",
		zap.String("appointment_id", id),
		zap.String("requested_status", string(req.Status)))
	return appt, nil
}

// ListMine returns all of the patient's appointments with slot details.
func (s *BookingService) ListMine(ctx context.Context, userID string) ([]models.AppointmentDetail, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user id required")
	}
	details, err := s.appointments.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	if details == nil {
		details = []models.AppointmentDetail{}
	}
	return details, nil
}

// GetForUser returns one appointment, scoped to its owner.
func (s *BookingService) GetForUser(ctx context.Context, id, userID string) (*models.AppointmentDetail, error) {
	if id == "" || userID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment id and user id required")
	}
	detail, err := s.appointments.FindDetailForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAppointmentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return detail, nil
}

// ListAll returns every appointment for the admin overview.
func (s *BookingService) ListAll(ctx context.Context) ([]models.AppointmentDetail, error) {
	details, err := s.appointments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	if details == nil {
		details = []models.AppointmentDetail{}
	}
	return details, nil
}

// ListByDate returns the day's appointments across all of its slots.
func (s *BookingService) ListByDate(ctx context.Context, date string) ([]models.AppointmentDetail, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	key := repository.CacheKeyAppointmentsByDate + date
	var cached []models.AppointmentDetail
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	slotIDs, err := s.slotIDs.ListIDsByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve slots for date")
	}
	if len(slotIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no slots available for this date")
	}

	details, err := s.appointments.ListBySlotIDs(ctx, slotIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	if details == nil {
		details = []models.AppointmentDetail{}
	}
	_ = s.cache.Set(ctx, key, details, 0)
	return details, nil
}

func (s *BookingService) invalidateListings(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, repository.CacheKeySlotsByDate+"*")
	_ = s.cache.Invalidate(ctx, repository.CacheKeyAppointmentsByDate+"*")
}
