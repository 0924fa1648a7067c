package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/booking-api/internal/models"
	"github.com/clinicore/booking-api/pkg/config"
)

type fakeSlotStore struct {
	upserted  []models.Slot
	cutoff    time.Time
	upsertErr error
}

func (f *fakeSlotStore) UpsertTemplate(_ context.Context, slots []models.Slot) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.upserted = append(f.upserted, slots...)
	return int64(len(slots)), nil
}

func (f *fakeSlotStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 0, nil
}

func TestDailyTemplate(t *testing.T) {
	template := DailyTemplate()
	require.Len(t, template, 12)

	assert.Equal(t, "14:00", template[0].StartTime)
	assert.Equal(t, "14:30", template[0].EndTime)
	assert.Equal(t, 28, template[0].SortOrder)

	assert.Equal(t, "14:30", template[1].StartTime)
	assert.Equal(t, "15:00", template[1].EndTime)
	assert.Equal(t, 29, template[1].SortOrder)

	last := template[len(template)-1]
	assert.Equal(t, "19:30", last.StartTime)
	assert.Equal(t, "20:00", last.EndTime)
	assert.Equal(t, 39, last.SortOrder)
}

func TestDailyTemplateIsStrictlyOrdered(t *testing.T) {
	template := DailyTemplate()
	for i := 1; i < len(template); i++ {
		assert.Equal(t, template[i-1].SortOrder+1, template[i].SortOrder)
	}
}

func TestGeneratorRunOnce(t *testing.T) {
	store := &fakeSlotStore{}
	gen := NewGenerator(store, nil, config.SchedulerConfig{HorizonDays: 3})
	fixed := time.Date(2026, time.September, 1, 10, 30, 0, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	require.NoError(t, gen.RunOnce(context.Background()))

	require.Len(t, store.upserted, 3*12)
	first := store.upserted[0]
	assert.Equal(t, "2026-09-01", first.Date)
	assert.Equal(t, "14:00", first.StartTime)
	assert.Equal(t, time.Date(2026, time.September, 1, 14, 0, 0, 0, time.UTC), first.SlotAt)

	last := store.upserted[len(store.upserted)-1]
	assert.Equal(t, "2026-09-03", last.Date)
	assert.Equal(t, "19:30", last.StartTime)
	assert.Equal(t, time.Date(2026, time.September, 3, 19, 30, 0, 0, time.UTC), last.SlotAt)

	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), store.cutoff)
}

func TestGeneratorRunOnceUpsertFailure(t *testing.T) {
	store := &fakeSlotStore{upsertErr: errors.New("connection refused")}
	gen := NewGenerator(store, nil, config.SchedulerConfig{HorizonDays: 1})

	err := gen.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materialize slot window")
	assert.True(t, store.cutoff.IsZero())
}

func TestGeneratorStartStop(t *testing.T) {
	store := &fakeSlotStore{}
	gen := NewGenerator(store, nil, config.SchedulerConfig{Interval: time.Hour, HorizonDays: 1})

	gen.Start(context.Background())
	gen.Stop()

	// The initial pass runs before Stop returns.
	assert.Len(t, store.upserted, 12)

	// Stop is idempotent.
	gen.Stop()
}
