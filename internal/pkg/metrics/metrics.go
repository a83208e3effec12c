// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Total number of stock movements recorded in the ledger",
	}, []string{"type", "reason"})

	StockUnitsMovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_units_moved_total",
		Help: "Total number of units moved through the ledger",
	}, []string{"type"})

	StockRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_rejections_total",
		Help: "Total number of stock operations rejected",
	}, []string{"reason"})

	TransactionsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transactions_created_total",
		Help: "Total number of purchases and sales opened",
	}, []string{"kind"})

	TransactionStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_status_changes_total",
		Help: "Total number of transaction status changes",
	}, []string{"kind", "status"})

	ReturnsDecidedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_decided_total",
		Help: "Total number of approved or rejected returns",
	}, []string{"kind", "status"})

	InvoicesIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_issued_total",
		Help: "Total number of invoices issued",
	}, []string{"kind"})

	InvoicesOverdue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "invoices_overdue",
		Help: "Sale invoices past their due date and not paid, as of the last scan",
	})

	LowStockProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "low_stock_products",
		Help: "Active products below their minimum stock, as of the last scan",
	})

	LedgerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_latency_seconds",
		Help:    "Latency of ledger-producing operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
