// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
)

// LowStockScanner refreshes stock alerts and reports how many products are low
type LowStockScanner interface {
	ScanLowStock(ctx context.Context) (int, error)
}

// OverdueCounter counts unpaid sale invoices past their due date
type OverdueCounter interface {
	CountOverdueSaleInvoices(ctx context.Context) (int64, error)
}

const jobTimeout = 5 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs the periodic back office jobs
type Scheduler struct {
	config   *config.Config
	logger   *logrus.Logger
	cron     *cron.Cron
	lowStock LowStockScanner
	overdue  OverdueCounter
}

// New creates a scheduler. Jobs are registered but not started.
func New(cfg *config.Config, logger *logrus.Logger, lowStock LowStockScanner, overdue OverdueCounter) (*Scheduler, error) {
	cronLogger := &cronLogger{logger: logger}
	s := &Scheduler{
		config:   cfg,
		logger:   logger,
		lowStock: lowStock,
		overdue:  overdue,
		cron: cron.New(
			cron.WithLocation(cfg.Location()),
			cron.WithParser(cronParser),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}

	if _, err := s.cron.AddFunc(cfg.Inventory.LowStockScanSpec, s.job("low_stock_scan", s.RunLowStockScan)); err != nil {
		return nil, fmt.Errorf("invalid low stock scan schedule %q: %w", cfg.Inventory.LowStockScanSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.Inventory.OverdueScanSpec, s.job("overdue_scan", s.RunOverdueScan)); err != nil {
		return nil, fmt.Errorf("invalid overdue scan schedule %q: %w", cfg.Inventory.OverdueScanSpec, err)
	}

	return s, nil
}

// Start runs the scheduler in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
}

// Stop stops scheduling and waits for running jobs, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

// RunLowStockScan refreshes stock alerts and updates the low stock gauge
func (s *Scheduler) RunLowStockScan(ctx context.Context) error {
	count, err := s.lowStock.ScanLowStock(ctx)
	if err != nil {
		return err
	}
	metrics.LowStockProducts.Set(float64(count))
	if count > 0 {
		s.logger.WithField("products", count).Warn("Products below minimum stock")
	}
	return nil
}

// RunOverdueScan updates the overdue invoice gauge
func (s *Scheduler) RunOverdueScan(ctx context.Context) error {
	count, err := s.overdue.CountOverdueSaleInvoices(ctx)
	if err != nil {
		return err
	}
	metrics.InvoicesOverdue.Set(float64(count))
	if count > 0 {
		s.logger.WithField("invoices", count).Warn("Sale invoices overdue")
	}
	return nil
}

func (s *Scheduler) job(name string, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start).String(),
		}).Debug("Scheduled job completed")
	}
}

// cronLogger adapts logrus to cron.Logger
type cronLogger struct {
	logger *logrus.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	out := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
