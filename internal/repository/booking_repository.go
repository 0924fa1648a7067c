package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/booking-api/internal/models"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
)

// BookingRepository owns the paired slot+appointment writes. Both sides of
// a booking or cancellation commit in a single transaction so the slot flag
// and the appointment row can never disagree, even across a crash.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository instantiates a booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Book reserves a slot for a patient. The conditional update on is_booked
// is the guard against concurrent bookings: whichever transaction flips the
// flag first wins, every other caller sees zero rows affected and gets a
// conflict.
func (r *BookingRepository) Book(ctx context.Context, slotID, userID string) (appt *models.Appointment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `UPDATE slots SET is_booked = TRUE, updated_at = $2 WHERE id = $1 AND is_booked = FALSE`, slotID, now)
	if err != nil {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = r.classifySlotConflict(ctx, tx, slotID)
		return nil, err
	}

	appt = &models.Appointment{
		ID:        uuid.NewString(),
		UserID:    userID,
		SlotID:    slotID,
		Status:    models.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO appointments (id, user_id, slot_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`, appt.ID, appt.UserID, appt.SlotID, appt.Status, now)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}
	return appt, nil
}

// Cancel removes a patient's appointment and frees its slot.
func (r *BookingRepository) Cancel(ctx context.Context, slotID, userID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `UPDATE slots SET is_booked = FALSE, updated_at = $2 WHERE id = $1 AND is_booked = TRUE`, slotID, now)
	if err != nil {
		return fmt.Errorf("free slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		lookupErr := tx.GetContext(ctx, &exists, `SELECT 1 FROM slots WHERE id = $1`, slotID)
		if lookupErr == sql.ErrNoRows {
			err = appErrors.ErrSlotNotFound
			return err
		}
		if lookupErr != nil {
			err = fmt.Errorf("inspect slot: %w", lookupErr)
			return err
		}
		err = appErrors.ErrSlotNotBooked
		return err
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM appointments WHERE slot_id = $1 AND user_id = $2`, slotID, userID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = appErrors.Clone(appErrors.ErrAppointmentNotFound, "no appointment found for this slot and user")
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cancel tx: %w", err)
	}
	return nil
}

// DeleteSlotCascade removes a slot together with every appointment
// referencing it, regardless of booked state. Administrative override.
func (r *BookingRepository) DeleteSlotCascade(ctx context.Context, slotID string) (removed int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM appointments WHERE slot_id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("delete slot appointments: %w", err)
	}
	removed, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("delete slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = appErrors.ErrSlotNotFound
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete tx: %w", err)
	}
	return removed, nil
}

// classifySlotConflict distinguishes a missing slot from an already booked one.
func (r *BookingRepository) classifySlotConflict(ctx context.Context, tx *sqlx.Tx, slotID string) error {
	var booked bool
	err := tx.GetContext(ctx, &booked, `SELECT is_booked FROM slots WHERE id = $1`, slotID)
	if err == sql.ErrNoRows {
		return appErrors.ErrSlotNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect slot: %w", err)
	}
	return appErrors.ErrSlotAlreadyBooked
}
