package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
)

type fakeScanner struct {
	count int
	err   error
	calls int
}

func (f *fakeScanner) ScanLowStock(ctx context.Context) (int, error) {
	f.calls++
	return f.count, f.err
}

type fakeOverdue struct {
	count int64
	err   error
}

func (f *fakeOverdue) CountOverdueSaleInvoices(ctx context.Context) (int64, error) {
	return f.count, f.err
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Timezone: "UTC"},
		Inventory: config.InventoryConfig{
			LowStockScanSpec: "@every 30m",
			OverdueScanSpec:  "0 6 * * *",
		},
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.Inventory.OverdueScanSpec = "not a schedule"

	_, err := New(cfg, logger.Discard(), &fakeScanner{}, &fakeOverdue{})
	assert.Error(t, err)
}

func TestRunLowStockScanSetsGauge(t *testing.T) {
	scanner := &fakeScanner{count: 4}
	s, err := New(testConfig(), logger.Discard(), scanner, &fakeOverdue{})
	require.NoError(t, err)

	require.NoError(t, s.RunLowStockScan(context.Background()))
	assert.Equal(t, 1, scanner.calls)
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.LowStockProducts))
}

func TestRunOverdueScanSetsGauge(t *testing.T) {
	s, err := New(testConfig(), logger.Discard(), &fakeScanner{}, &fakeOverdue{count: 2})
	require.NoError(t, err)

	require.NoError(t, s.RunOverdueScan(context.Background()))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.InvoicesOverdue))
}

func TestRunPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	s, err := New(testConfig(), logger.Discard(), &fakeScanner{err: boom}, &fakeOverdue{err: boom})
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunLowStockScan(context.Background()), boom)
	assert.ErrorIs(t, s.RunOverdueScan(context.Background()), boom)
}

func TestStartStop(t *testing.T) {
	s, err := New(testConfig(), logger.Discard(), &fakeScanner{}, &fakeOverdue{})
	require.NoError(t, err)

	s.Start()
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop(context.Background())
}
