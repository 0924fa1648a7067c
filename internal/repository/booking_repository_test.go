package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking-api/internal/models"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
)

func newBookingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBookingRepositoryBook(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_booked = TRUE, updated_at = $2 WHERE id = $1 AND is_booked = FALSE")).
		WithArgs("slot-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(sqlmock.AnyArg(), "user-1", "slot-1", models.StatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	appt, err := repo.Book(context.Background(), "slot-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "slot-1", appt.SlotID)
	assert.Equal(t, "user-1", appt.UserID)
	assert.Equal(t, models.StatusPending, appt.Status)
	assert.NotEmpty(t, appt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryBookConflict(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_booked = TRUE, updated_at = $2 WHERE id = $1 AND is_booked = FALSE")).
		WithArgs("slot-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_booked FROM slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"is_booked"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), "slot-1", "user-1")
	assert.ErrorIs(t, err, appErrors.ErrSlotAlreadyBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryBookMissingSlot(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_booked = TRUE, updated_at = $2 WHERE id = $1 AND is_booked = FALSE")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT is_booked FROM slots WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"is_booked"}))
	mock.ExpectRollback()

	_, err := repo.Book(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, appErrors.ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_booked = FALSE, updated_at = $2 WHERE id = $1 AND is_booked = TRUE")).
		WithArgs("slot-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE slot_id = $1 AND user_id = $2")).
		WithArgs("slot-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Cancel(context.Background(), "slot-1", "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCancelNotBooked(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_booked = FALSE, updated_at = $2 WHERE id = $1 AND is_booked = TRUE")).
		WithArgs("slot-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Cancel(context.Background(), "slot-1", "user-1")
	assert.ErrorIs(t, err, appErrors.ErrSlotNotBooked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCancelWithoutAppointmentRollsBack(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE slots SET is_booked = FALSE, updated_at = $2 WHERE id = $1 AND is_booked = TRUE")).
		WithArgs("slot-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE slot_id = $1 AND user_id = $2")).
		WithArgs("slot-1", "other-user").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Cancel(context.Background(), "slot-1", "other-user")
	assert.ErrorIs(t, err, appErrors.ErrAppointmentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryDeleteSlotCascade(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE slot_id = $1")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	removed, err := repo.DeleteSlotCascade(context.Background(), "slot-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryDeleteSlotCascadeMissing(t *testing.T) {
	db, mock, cleanup := newBookingMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE slot_id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DeleteSlotCascade(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
