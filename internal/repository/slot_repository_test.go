package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking-api/internal/models"
)

func newSlotMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "date", "start_time", "end_time", "slot_at", "sort_order", "is_booked", "created_at", "updated_at"}).
		AddRow("slot-1", "2026-09-01", "14:00", "14:30", now, 28, false, now, now).
		AddRow("slot-2", "2026-09-01", "14:30", "15:00", now, 29, true, now, now)
}

func TestSlotRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, date, start_time, end_time, slot_at, sort_order, is_booked, created_at, updated_at FROM slots WHERE date = $1 ORDER BY sort_order ASC")).
		WithArgs("2026-09-01").
		WillReturnRows(slotRows())

	slots, err := repo.ListByDate(context.Background(), "2026-09-01")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "14:00", slots[0].StartTime)
	assert.True(t, slots[1].IsBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListByDateEmpty(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery("SELECT id, date, start_time").
		WithArgs("2026-09-02").
		WillReturnRows(sqlmock.NewRows([]string{"id", "date", "start_time", "end_time", "slot_at", "sort_order", "is_booked", "created_at", "updated_at"}))

	slots, err := repo.ListByDate(context.Background(), "2026-09-02")
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryExistsByDateAndStart(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE date = $1 AND start_time = $2 LIMIT 1")).
		WithArgs("2026-09-01", "14:00").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsByDateAndStart(context.Background(), "2026-09-01", "14:00")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE date = $1 AND start_time = $2 LIMIT 1")).
		WithArgs("2026-09-01", "09:00").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsByDateAndStart(context.Background(), "2026-09-01", "09:00")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec("INSERT INTO slots").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	slot := &models.Slot{Date: "2026-09-01", StartTime: "14:00", EndTime: "14:30", SlotAt: time.Now(), SortOrder: 28}
	err := repo.Create(context.Background(), slot)
	require.NoError(t, err)
	assert.NotEmpty(t, slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryUpsertTemplateSkipsExisting(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	slots := []models.Slot{
		{Date: "2026-09-01", StartTime: "14:00", EndTime: "14:30", SlotAt: time.Now(), SortOrder: 28},
		{Date: "2026-09-01", StartTime: "14:30", EndTime: "15:00", SlotAt: time.Now(), SortOrder: 29},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO slots").
		WithArgs(sqlmock.AnyArg(), "2026-09-01", "14:00", "14:30", sqlmock.AnyArg(), 28, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO slots").
		WithArgs(sqlmock.AnyArg(), "2026-09-01", "14:30", "15:00", sqlmock.AnyArg(), 29, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	inserted, err := repo.UpsertTemplate(context.Background(), slots)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDeleteExpired(t *testing.T) {
	db, mock, cleanup := newSlotMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	cutoff := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE slot_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	purged, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}
