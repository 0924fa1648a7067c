package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicore/booking-api/internal/models"
)

// SlotRepository handles persistence for bookable time slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository instantiates a slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = "id, date, start_time, end_time, slot_at, sort_order, is_booked, created_at, updated_at"

// ListByDate returns all slots for a calendar date ordered by the daily sort key.
// An empty day yields an empty slice, not an error.
func (r *SlotRepository) ListByDate(ctx context.Context, date string) ([]models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE date = $1 ORDER BY sort_order ASC", slotColumns)
	slots := []models.Slot{}
	if err := r.db.SelectContext(ctx, &slots, query, date); err != nil {
		return nil, fmt.Errorf("list slots by date: %w", err)
	}
	return slots, nil
}

// ListIDsByDate returns the slot identifiers for a date.
func (r *SlotRepository) ListIDsByDate(ctx context.Context, date string) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, "SELECT id FROM slots WHERE date = $1", date); err != nil {
		return nil, fmt.Errorf("list slot ids by date: %w", err)
	}
	return ids, nil
}

// FindByID loads a slot by identifier.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM slots WHERE id = $1", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ExistsByDateAndStart checks the (date, start_time) idempotency key.
func (r *SlotRepository) ExistsByDateAndStart(ctx context.Context, date, startTime string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM slots WHERE date = $1 AND start_time = $2 LIMIT 1", date, startTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check slot existence: %w", err)
	}
	return true, nil
}

// Create inserts a single slot record. The (date, start_time) unique
// constraint backstops the caller-level duplicate check.
func (r *SlotRepository) Create(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO slots (id, date, start_time, end_time, slot_at, sort_order, is_booked, created_at, updated_at)
		VALUES (:id, :date, :start_time, :end_time, :slot_at, :sort_order, :is_booked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// UpsertTemplate inserts the provided slots skipping any whose
// (date, start_time) already exists. Existing rows, including their
// is_booked state, are never touched. Returns the number inserted.
func (r *SlotRepository) UpsertTemplate(ctx context.Context, slots []models.Slot) (int64, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO slots (id, date, start_time, end_time, slot_at, sort_order, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
		ON CONFLICT (date, start_time) DO NOTHING`

	now := time.Now().UTC()
	var inserted int64
	for _, slot := range slots {
		id := slot.ID
		if id == "" {
			id = uuid.NewString()
		}
		var res sql.Result
		res, err = tx.ExecContext(ctx, query, id, slot.Date, slot.StartTime, slot.EndTime, slot.SlotAt, slot.SortOrder, now)
		if err != nil {
			return 0, fmt.Errorf("upsert slot %s %s: %w", slot.Date, slot.StartTime, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted += n
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert tx: %w", err)
	}
	return inserted, nil
}

// DeleteExpired purges every slot strictly before the cutoff timestamp.
func (r *SlotRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slots WHERE slot_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired slots: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
