// services/scheduler.go
package services

import (
	"context"
	"time"

	"recycle-rewards-system/store"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// MaintenanceScheduler runs the periodic ledger housekeeping: the legacy
// account backfill and a low-stock report.
type MaintenanceScheduler struct {
	Store             store.Store
	Catalog           *CatalogService
	Log               *zap.SugaredLogger
	Interval          time.Duration
	LowStockThreshold int64

	sched gocron.Scheduler
}

func NewMaintenanceScheduler(st store.Store, catalog *CatalogService, log *zap.SugaredLogger, interval time.Duration) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		Store:             st,
		Catalog:           catalog,
		Log:               loggerOrNop(log),
		Interval:          interval,
		LowStockThreshold: 2,
	}
}

// Start schedules RunOnce every Interval, starting immediately.
func (m *MaintenanceScheduler) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(m.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := m.RunOnce(ctx); err != nil {
				m.Log.Errorf("[Scheduler] Maintenance run failed: %v", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}

	sched.Start()
	m.sched = sched
	return nil
}

// Shutdown stops the scheduler if it was started.
func (m *MaintenanceScheduler) Shutdown() error {
	if m.sched == nil {
		return nil
	}
	return m.sched.Shutdown()
}

// RunOnce backfills legacy accounts and logs listings running low.
func (m *MaintenanceScheduler) RunOnce(ctx context.Context) error {
	fixed, err := m.Store.BackfillLegacyAccounts(ctx)
	if err != nil {
		return err
	}
	if fixed > 0 {
		m.Log.Infof("🧹 Backfilled %d legacy point column(s)", fixed)
	}

	low, err := m.Catalog.LowStock(ctx, m.LowStockThreshold)
	if err != nil {
		return err
	}
	for _, p := range low {
		m.Log.Warnf("📦 Low stock: %s has %d unit(s) left", p.Name, p.Stock)
	}
	return nil
}
