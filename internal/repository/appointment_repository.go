package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/clinicore/booking-api/internal/models"
)

// AppointmentRepository handles persistence for the patient-slot booking relationship.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository instantiates an appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = "id, user_id, slot_id, status, created_at, updated_at"

// appointmentDetailRow is the flattened join shape for detail listings.
type appointmentDetailRow struct {
	ID        string                   `db:"id"`
	UserID    string                   `db:"user_id"`
	SlotID    string                   `db:"slot_id"`
	Status    models.AppointmentStatus `db:"status"`
	CreatedAt time.Time                `db:"created_at"`
	UpdatedAt time.Time                `db:"updated_at"`

	SlotDate      string    `db:"slot_date"`
	SlotStart     string    `db:"slot_start"`
	SlotEnd       string    `db:"slot_end"`
	SlotAt        time.Time `db:"slot_at"`
	SlotSortOrder int       `db:"slot_sort_order"`
	SlotBooked    bool      `db:"slot_booked"`

	Username    string `db:"username"`
	Email       string `db:"email"`
	PhoneNumber string `db:"phone_number"`
}

const appointmentDetailQuery = `SELECT
		a.id, a.user_id, a.slot_id, a.status, a.created_at, a.updated_at,
		s.date AS slot_date, s.start_time AS slot_start, s.end_time AS slot_end,
		s.slot_at, s.sort_order AS slot_sort_order, s.is_booked AS slot_booked,
		u.username, u.email, u.phone_number
	FROM appointments a
	JOIN slots s ON s.id = a.slot_id
	JOIN users u ON u.id = a.user_id`

func (row appointmentDetailRow) toDetail() models.AppointmentDetail {
	return models.AppointmentDetail{
		Appointment: models.Appointment{
			ID:        row.ID,
			UserID:    row.UserID,
			SlotID:    row.SlotID,
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		},
		Slot: models.Slot{
			ID:        row.SlotID,
			Date:      row.SlotDate,
			StartTime: row.SlotStart,
			EndTime:   row.SlotEnd,
			SlotAt:    row.SlotAt,
			SortOrder: row.SlotSortOrder,
			IsBooked:  row.SlotBooked,
		},
		User: models.UserSummary{
			ID:          row.UserID,
			Username:    row.Username,
			Email:       row.Email,
			PhoneNumber: row.PhoneNumber,
		},
	}
}

func toDetails(rows []appointmentDetailRow) []models.AppointmentDetail {
	details := make([]models.AppointmentDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDetail())
	}
	return details
}

// FindByID loads a bare appointment record.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE id = $1", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindDetailForUser loads an appointment with slot and patient attached,
// scoped to the owning user.
func (r *AppointmentRepository) FindDetailForUser(ctx context.Context, id, userID string) (*models.AppointmentDetail, error) {
	query := appointmentDetailQuery + " WHERE a.id = $1 AND a.user_id = $2"
	var row appointmentDetailRow
	if err := r.db.GetContext(ctx, &row, query, id, userID); err != nil {
		return nil, err
	}
	detail := row.toDetail()
	return &detail, nil
}

// ListByUser returns a patient's appointments, soonest slot first.
func (r *AppointmentRepository) ListByUser(ctx context.Context, userID string) ([]models.AppointmentDetail, error) {
	query := appointmentDetailQuery + " WHERE a.user_id = $1 ORDER BY s.slot_at ASC"
	rows := []appointmentDetailRow{}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list appointments by user: %w", err)
	}
	return toDetails(rows), nil
}

// ListAll returns every appointment for the admin overview.
func (r *AppointmentRepository) ListAll(ctx context.Context) ([]models.AppointmentDetail, error) {
	query := appointmentDetailQuery + " ORDER BY s.slot_at ASC"
	rows := []appointmentDetailRow{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all appointments: %w", err)
	}
	return toDetails(rows), nil
}

// ListBySlotIDs returns appointments referencing any of the given slots.
func (r *AppointmentRepository) ListBySlotIDs(ctx context.Context, slotIDs []string) ([]models.AppointmentDetail, error) {
	if len(slotIDs) == 0 {
		return []models.AppointmentDetail{}, nil
	}

	query, args, err := sqlx.In(appointmentDetailQuery+" WHERE a.slot_id IN (?) ORDER BY s.sort_order ASC", slotIDs)
	if err != nil {
		return nil, fmt.Errorf("build slot id query: %w", err)
	}
	query = r.db.Rebind(query)

	rows := []appointmentDetailRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list appointments by slots: %w", err)
	}
	return toDetails(rows), nil
}

// UpdateStatus persists a status transition.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $2, updated_at = $3 WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update appointment status: no rows affected")
	}
	return nil
}
