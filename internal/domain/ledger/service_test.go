package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/testdb"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []*ledger.StockMovementEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	p.events = append(p.events, event.(*ledger.StockMovementEvent))
	return p.err
}

func TestRecordInAndOut(t *testing.T) {
	publisher := &recordingPublisher{}
	env := testdb.NewEnv(t, publisher)
	ctx := context.Background()

	product := env.Product(t, "Notebook", 10, "2.50")

	out, err := env.Ledger.Record(ctx, product.ID, ledger.Entry{
		Type:     ledger.MovementTypeOut,
		Reason:   ledger.ReasonDamaged,
		Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, out.PreviousStock)
	assert.Equal(t, 7, out.NewStock)
	assert.Equal(t, -3, out.Delta())

	in, err := env.Ledger.Record(ctx, product.ID, ledger.Entry{
		Type:     ledger.MovementTypeIn,
		Reason:   ledger.ReasonAdjustment,
		Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, in.PreviousStock)
	assert.Equal(t, 12, in.NewStock)

	assert.Equal(t, 12, env.Stock(t, product.ID))
	require.NoError(t, env.Ledger.Reconcile(ctx, product.ID))

	// opening stock plus the two recorded movements
	require.Len(t, publisher.events, 3)
	assert.Equal(t, "stock.movement.recorded", publisher.events[1].EventType)
	assert.Equal(t, out.ID, publisher.events[1].MovementID)
	assert.Equal(t, "product-1", publisher.keys[1])
}

func TestRecordRejectsInsufficientStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Glue", 2, "1.00")

	_, err := env.Ledger.Record(ctx, product.ID, ledger.Entry{
		Type:     ledger.MovementTypeOut,
		Reason:   ledger.ReasonExpired,
		Quantity: 3,
	})
	var stockErr *apperror.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	assert.Equal(t, 2, env.Stock(t, product.ID))
	assert.Len(t, env.Movements(t, product.ID), 1)
}

func TestApplyValidatesEntries(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	product := env.Product(t, "Tape", 5, "1.00")
	one, two := uint(1), uint(2)

	tests := []struct {
		name  string
		entry ledger.Entry
		kind  apperror.Kind
	}{
		{"zero quantity", ledger.Entry{Type: ledger.MovementTypeIn, Reason: ledger.ReasonPurchase}, apperror.KindValidation},
		{"reason not allowed for type", ledger.Entry{Type: ledger.MovementTypeIn, Reason: ledger.ReasonSale, Quantity: 1}, apperror.KindValidation},
		{"unknown type", ledger.Entry{Type: "XYZ", Reason: ledger.ReasonSale, Quantity: 1}, apperror.KindValidation},
		{"two references", ledger.Entry{
			Type: ledger.MovementTypeOut, Reason: ledger.ReasonSale, Quantity: 1,
			Ref: ledger.Reference{SaleID: &one, PurchaseID: &two},
		}, apperror.KindConsistency},
		{"adjustment with reference", ledger.Entry{
			Type: ledger.MovementTypeAdjustment, Reason: ledger.ReasonAdjustment, Delta: 1,
			Ref: ledger.Reference{SaleID: &one},
		}, apperror.KindValidation},
		{"empty adjustment", ledger.Entry{Type: ledger.MovementTypeAdjustment, Reason: ledger.ReasonAdjustment}, apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.DB.Transaction(func(tx *gorm.DB) error {
				locked, err := env.Ledger.Lock(tx, product.ID)
				require.NoError(t, err)
				_, err = env.Ledger.Apply(tx, locked, tt.entry)
				return err
			})
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	assert.Equal(t, 5, env.Stock(t, product.ID))
	require.NoError(t, env.Ledger.Reconcile(context.Background(), product.ID))
}

func TestLockUnknownProduct(t *testing.T) {
	env := testdb.NewEnv(t, nil)

	err := env.DB.Transaction(func(tx *gorm.DB) error {
		_, err := env.Ledger.Lock(tx, 404)
		return err
	})
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestAdjust(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()
	product := env.Product(t, "Scissors", 4, "3.00")
	userID := uint(9)

	movement, err := env.Ledger.Adjust(ctx, &ledger.AdjustmentRequest{
		ProductID: product.ID,
		Type:      ledger.MovementTypeOut,
		Reason:    ledger.ReasonDamaged,
		Quantity:  1,
		Notes:     "broken blade",
	}, &userID)
	require.NoError(t, err)
	assert.Equal(t, 3, movement.NewStock)
	require.NotNil(t, movement.CreatedBy)
	assert.Equal(t, userID, *movement.CreatedBy)

	_, err = env.Ledger.Adjust(ctx, &ledger.AdjustmentRequest{
		ProductID: product.ID,
		Type:      ledger.MovementTypeIn,
		Reason:    "sale",
		Quantity:  1,
	}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestAdjustTo(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()
	product := env.Product(t, "Folder", 10, "1.00")

	movement, err := env.Ledger.AdjustTo(ctx, &ledger.StockCountRequest{ProductID: product.ID, CountedStock: 6}, nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.MovementTypeAdjustment, movement.MovementType)
	assert.Equal(t, 4, movement.Quantity)
	assert.Equal(t, -4, movement.Delta())
	assert.Equal(t, 6, env.Stock(t, product.ID))

	_, err = env.Ledger.AdjustTo(ctx, &ledger.StockCountRequest{ProductID: product.ID, CountedStock: 6}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	require.NoError(t, env.Ledger.Reconcile(ctx, product.ID))
}

func TestReconcileDetectsDrift(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()
	product := env.Product(t, "Crayons", 8, "4.00")

	require.NoError(t, env.DB.Model(&catalog.Product{}).Where("id = ?", product.ID).Update("stock", 9).Error)

	err := env.Ledger.Reconcile(ctx, product.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindConsistency))

	assert.True(t, apperror.IsKind(env.Ledger.Reconcile(ctx, 404), apperror.KindNotFound))
}

func TestMovementsFilterAndPaginate(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()
	product := env.Product(t, "Paper clips", 50, "0.10")
	other := env.Product(t, "Pins", 50, "0.10")

	for i := 0; i < 3; i++ {
		_, err := env.Ledger.Record(ctx, product.ID, ledger.Entry{Type: ledger.MovementTypeOut, Reason: ledger.ReasonDamaged, Quantity: 1})
		require.NoError(t, err)
	}

	result, err := env.Ledger.Movements(ctx, &ledger.MovementFilter{ProductID: product.ID, Reason: ledger.ReasonDamaged})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Pagination.Total)
	require.Len(t, result.Movements, 3)
	assert.Equal(t, 47, result.Movements[0].NewStock)

	all, err := env.Ledger.AllMovements(ctx, &ledger.MovementFilter{ProductID: other.ID})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Product)
	assert.Equal(t, "Pins", all[0].Product.Name)
}

func TestStockAlerts(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()
	product := env.Product(t, "Highlighter", 3, "1.00")

	minimum := 5
	_, err := env.Catalog.UpdateProduct(ctx, product.ID, &catalog.ProductUpdateRequest{MinimumStock: &minimum})
	require.NoError(t, err)

	count, err := env.Ledger.ScanLowStock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	alerts, err := env.Ledger.OpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, ledger.AlertTypeLowStock, alerts[0].AlertType)

	_, err = env.Ledger.Record(ctx, product.ID, ledger.Entry{Type: ledger.MovementTypeOut, Reason: ledger.ReasonDamaged, Quantity: 3})
	require.NoError(t, err)

	alerts, err = env.Ledger.OpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, ledger.AlertTypeOutOfStock, alerts[0].AlertType)

	_, err = env.Ledger.Record(ctx, product.ID, ledger.Entry{Type: ledger.MovementTypeIn, Reason: ledger.ReasonAdjustment, Quantity: 10})
	require.NoError(t, err)

	alerts, err = env.Ledger.OpenAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	assert.True(t, apperror.IsKind(env.Ledger.ResolveAlert(ctx, 404), apperror.KindNotFound))
}

func TestPublisherFailureDoesNotUndoMovement(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	env := testdb.NewEnv(t, publisher)

	product := env.Product(t, "Sharpener", 2, "0.60")
	_, err := env.Ledger.Record(context.Background(), product.ID, ledger.Entry{Type: ledger.MovementTypeOut, Reason: ledger.ReasonDamaged, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Stock(t, product.ID))
}
