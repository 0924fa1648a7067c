package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clinicore/booking-api/internal/models"
	"github.com/clinicore/booking-api/pkg/config"
)

// Clinic consultation hours: half-hour slots from 14:00 up to 20:00.
const (
	openingHour = 14
	closingHour = 20
)

type slotStore interface {
	UpsertTemplate(ctx context.Context, slots []models.Slot) (int64, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type runRecorder interface {
	CountSchedulerRun(result string)
}

// Generator keeps a rolling window of bookable slots materialized and
// purges slots whose date has passed. It owns its ticker lifecycle: Start
// launches the loop, Stop (or context cancellation) halts it.
type Generator struct {
	slots       slotStore
	logger      *zap.Logger
	interval    time.Duration
	horizonDays int
	metrics     runRecorder
	now         func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewGenerator constructs a slot generator from scheduler configuration.
func NewGenerator(slots slotStore, logger *zap.Logger, cfg config.SchedulerConfig) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = 30
	}
	return &Generator{
		slots:       slots,
		logger:      logger,
		interval:    interval,
		horizonDays: horizon,
		now:         time.Now,
	}
}

// WithMetrics attaches a run counter to the generator.
func (g *Generator) WithMetrics(metrics runRecorder) *Generator {
	g.metrics = metrics
	return g
}

// DailyTemplate returns the fixed grid of half-hour slots for one day.
// The sort key is hour*2 for the :00 slot and hour*2+1 for the :30 slot,
// which keeps same-day ordering stable regardless of insertion order.
func DailyTemplate() []models.SlotTemplate {
	template := make([]models.SlotTemplate, 0, (closingHour-openingHour)*2)
	for hour := openingHour; hour < closingHour; hour++ {
		template = append(template, models.SlotTemplate{
			StartTime: fmt.Sprintf("%02d:00", hour),
			EndTime:   fmt.Sprintf("%02d:30", hour),
			SortOrder: hour * 2,
		})
		template = append(template, models.SlotTemplate{
			StartTime: fmt.Sprintf("%02d:30", hour),
			EndTime:   fmt.Sprintf("%02d:00", hour+1),
			SortOrder: hour*2 + 1,
		})
	}
	return template
}

// RunOnce materializes the rolling window and purges expired slots.
// Both steps are idempotent: the upsert skips existing (date, start_time)
// pairs without touching their booked state, and the purge cutoff is
// today's midnight so re-runs delete nothing new.
func (g *Generator) RunOnce(ctx context.Context) error {
	today := midnight(g.now())

	template := DailyTemplate()
	batch := make([]models.Slot, 0, g.horizonDays*len(template))
	for i := 0; i < g.horizonDays; i++ {
		day := today.AddDate(0, 0, i)
		dateStr := day.Format("2006-01-02")
		for _, t := range template {
			batch = append(batch, models.Slot{
				Date:      dateStr,
				StartTime: t.StartTime,
				EndTime:   t.EndTime,
				SlotAt:    slotTime(day, t.SortOrder),
				SortOrder: t.SortOrder,
			})
		}
	}

	inserted, err := g.slots.UpsertTemplate(ctx, batch)
	if err != nil {
		return fmt.Errorf("materialize slot window: %w", err)
	}

	purged, err := g.slots.DeleteExpired(ctx, today)
	if err != nil {
		return fmt.Errorf("purge expired slots: %w", err)
	}

	g.logger.Info("slot generator run complete",
		zap.Int64("inserted", inserted),
		zap.Int64("purged", purged),
		zap.String("window_start", today.Format("2006-01-02")),
		zap.Int("horizon_days", g.horizonDays),
	)
	return nil
}

// Start runs one pass immediately and then repeats on the configured
// interval until Stop is called or the parent context is cancelled.
// A failed run is logged and retried on the next tick; it never brings
// down the host process.
func (g *Generator) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.done = make(chan struct{})
	g.started = true
	g.mu.Unlock()

	go func() {
		defer close(g.done)

		g.runLogged(runCtx)

		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				g.logger.Info("slot generator stopped")
				return
			case <-ticker.C:
				g.runLogged(runCtx)
			}
		}
	}()
}

// Stop halts the ticker loop and waits for any in-flight run to finish.
func (g *Generator) Stop() {
	g.mu.Lock()
	if !g.started {
		g.mu.Unlock()
		return
	}
	cancel := g.cancel
	done := g.done
	g.started = false
	g.mu.Unlock()

	cancel()
	<-done
}

func (g *Generator) runLogged(ctx context.Context) {
	start := g.now()
	if err := g.RunOnce(ctx); err != nil {
		if g.metrics != nil {
			g.metrics.CountSchedulerRun("error")
		}
		g.logger.Error("slot generator run failed", zap.Error(err))
		return
	}
	if g.metrics != nil {
		g.metrics.CountSchedulerRun("ok")
	}
	g.logger.Debug("slot generator tick", zap.Duration("took", g.now().Sub(start)))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// slotTime resolves a template sort key back to the concrete timestamp on
// the given day (sort key hour*2(+1) encodes the half-hour grid).
func slotTime(day time.Time, sortOrder int) time.Time {
	hour := sortOrder / 2
	minute := 0
	if sortOrder%2 == 1 {
		minute = 30
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
