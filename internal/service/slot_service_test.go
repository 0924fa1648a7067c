package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking-api/internal/models"
	appErrors "github.com/clinicore/booking-api/pkg/errors"
)

type fakeSlotRepo struct {
	listByDateFn           func(ctx context.Context, date string) ([]models.Slot, error)
	findByIDFn             func(ctx context.Context, id string) (*models.Slot, error)
	existsByDateAndStartFn func(ctx context.Context, date, startTime string) (bool, error)
	createFn               func(ctx context.Context, slot *models.Slot) error
}

func (f *fakeSlotRepo) ListByDate(ctx context.Context, date string) ([]models.Slot, error) {
	return f.listByDateFn(ctx, date)
}

func (f *fakeSlotRepo) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeSlotRepo) ExistsByDateAndStart(ctx context.Context, date, startTime string) (bool, error) {
	return f.existsByDateAndStartFn(ctx, date, startTime)
}

func (f *fakeSlotRepo) Create(ctx context.Context, slot *models.Slot) error {
	return f.createFn(ctx, slot)
}

type fakeCascadeRepo struct {
	deleteSlotCascadeFn func(ctx context.Context, slotID string) (int64, error)
}

func (f *fakeCascadeRepo) DeleteSlotCascade(ctx context.Context, slotID string) (int64, error) {
	return f.deleteSlotCascadeFn(ctx, slotID)
}

func TestSlotServiceListByDate(t *testing.T) {
	slots := &fakeSlotRepo{
		listByDateFn: func(_ context.Context, date string) ([]models.Slot, error) {
			assert.Equal(t, "2026-09-01", date)
			return []models.Slot{{ID: "slot-1", StartTime: "14:00"}}, nil
		},
	}
	svc := NewSlotService(slots, nil, nil, nil, nil)

	got, err := svc.ListByDate(context.Background(), "2026-09-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "slot-1", got[0].ID)
}

func TestSlotServiceListByDateEmptyDayIsNotAnError(t *testing.T) {
	slots := &fakeSlotRepo{
		listByDateFn: func(context.Context, string) ([]models.Slot, error) {
			return nil, nil
		},
	}
	svc := NewSlotService(slots, nil, nil, nil, nil)

	got, err := svc.ListByDate(context.Background(), "2026-09-01")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSlotServiceListByDateRejectsBadDate(t *testing.T) {
	svc := NewSlotService(nil, nil, nil, nil, nil)

	_, err := svc.ListByDate(context.Background(), "September 1st")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSlotServiceGetMissing(t *testing.T) {
	slots := &fakeSlotRepo{
		findByIDFn: func(context.Context, string) (*models.Slot, error) {
			return nil, sql.ErrNoRows
		},
	}
	svc := NewSlotService(slots, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrSlotNotFound)
}

func TestSlotServiceCreate(t *testing.T) {
	var created *models.Slot
	slots := &fakeSlotRepo{
		existsByDateAndStartFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
		createFn: func(_ context.Context, slot *models.Slot) error {
			slot.ID = "slot-new"
			created = slot
			return nil
		},
	}
	svc := NewSlotService(slots, nil, nil, nil, nil)

	slot, err := svc.Create(context.Background(), models.CreateSlotRequest{
		Date:      "2026-09-01",
		StartTime: "14:30",
		EndTime:   "15:00",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "slot-new", slot.ID)
	assert.Equal(t, 29, slot.SortOrder)
	assert.Equal(t, 14, slot.SlotAt.Hour())
	assert.Equal(t, 30, slot.SlotAt.Minute())
	assert.False(t, slot.IsBooked)
}

func TestSlotServiceCreateDuplicateStart(t *testing.T) {
	slots := &fakeSlotRepo{
		existsByDateAndStartFn: func(context.Context, string, string) (bool, error) {
			return true, nil
		},
	}
	svc := NewSlotService(slots, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateSlotRequest{
		Date:      "2026-09-01",
		StartTime: "14:00",
		EndTime:   "14:30",
	})
	assert.ErrorIs(t, err, appErrors.ErrSlotExists)
}

func TestSlotServiceCreateRejectsInvertedWindow(t *testing.T) {
	svc := NewSlotService(nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateSlotRequest{
		Date:      "2026-09-01",
		StartTime: "15:00",
		EndTime:   "14:30",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSlotServiceCreateRejectsBadPayload(t *testing.T) {
	svc := NewSlotService(nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), models.CreateSlotRequest{
		Date:      "2026/09/01",
		StartTime: "2pm",
		EndTime:   "3pm",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSlotServiceDeleteCascades(t *testing.T) {
	cascade := &fakeCascadeRepo{
		deleteSlotCascadeFn: func(_ context.Context, slotID string) (int64, error) {
			assert.Equal(t, "slot-1", slotID)
			return 3, nil
		},
	}
	svc := NewSlotService(nil, cascade, nil, nil, nil)

	removed, err := svc.Delete(context.Background(), "slot-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)
}

func TestSlotServiceDeleteMissing(t *testing.T) {
	cascade := &fakeCascadeRepo{
		deleteSlotCascadeFn: func(context.Context, string) (int64, error) {
			return 0, appErrors.Clone(appErrors.ErrSlotNotFound, "slot not found")
		},
	}
	svc := NewSlotService(nil, cascade, nil, nil, nil)

	_, err := svc.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, appErrors.ErrSlotNotFound)
}
