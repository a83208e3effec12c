package trade_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/testdb"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newSale(t *testing.T, env *testdb.Env, lines ...trade.SaleLineRequest) *trade.Sale {
	t.Helper()

	sale, err := env.Trade.CreateSale(context.Background(), &trade.CreateSaleRequest{
		CustomerID: testdb.WalkInCustomerID,
		Lines:      lines,
	}, nil)
	require.NoError(t, err)
	return sale
}

func newPurchase(t *testing.T, env *testdb.Env, supplierID uint, lines ...trade.PurchaseLineRequest) *trade.Purchase {
	t.Helper()

	purchase, err := env.Trade.CreatePurchase(context.Background(), &trade.CreatePurchaseRequest{
		SupplierID: supplierID,
		Lines:      lines,
	}, nil)
	require.NoError(t, err)
	return purchase
}

func TestSaleLineTakesStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Pencil", 10, "2.00")
	sale := newSale(t, env, trade.SaleLineRequest{ProductID: product.ID, Quantity: 4})

	assert.Equal(t, trade.SaleStatusPending, sale.Status)
	require.Len(t, sale.Details, 1)
	assert.True(t, decimal.RequireFromString("2.00").Equal(sale.Details[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("8.00").Equal(sale.Total))
	assert.Equal(t, 6, env.Stock(t, product.ID))

	movements := env.Movements(t, product.ID)
	require.Len(t, movements, 2)
	out := movements[1]
	assert.Equal(t, ledger.MovementTypeOut, out.MovementType)
	assert.Equal(t, ledger.ReasonSale, out.Reason)
	assert.Equal(t, 4, out.Quantity)
	assert.Equal(t, 10, out.PreviousStock)
	assert.Equal(t, 6, out.NewStock)
	require.NotNil(t, out.SaleID)
	assert.Equal(t, sale.ID, *out.SaleID)
	require.NotNil(t, out.LineID)
	assert.Equal(t, sale.Details[0].ID, *out.LineID)

	require.NoError(t, env.Trade.VerifySaleLedger(ctx, sale.ID))
	require.NoError(t, env.Ledger.Reconcile(ctx, product.ID))
}

func TestSaleLineRejectsInsufficientStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Eraser", 10, "0.50")

	_, err := env.Trade.CreateSale(ctx, &trade.CreateSaleRequest{
		CustomerID: testdb.WalkInCustomerID,
		Lines:      []trade.SaleLineRequest{{ProductID: product.ID, Quantity: 11}},
	}, nil)
	var stockErr *apperror.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, product.ID, stockErr.ProductID)
	assert.Equal(t, 10, stockErr.Available)
	assert.Equal(t, 11, stockErr.Requested)

	// the whole sale rolls back with its line
	var count int64
	require.NoError(t, env.DB.Model(&trade.Sale{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 10, env.Stock(t, product.ID))
	assert.Len(t, env.Movements(t, product.ID), 1)
}

func TestSaleLineSnapshotsDiscount(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Fountain pen", 5, "100.00")
	discount, err := env.Pricing.CreateDiscount(ctx, &pricing.DiscountRequest{
		Name:  "Back to school",
		Type:  pricing.DiscountTypePercentage,
		Value: decimal.NewFromInt(25),
		Scope: pricing.ScopeAllProducts,
	})
	require.NoError(t, err)

	sale := newSale(t, env)
	detail, _, err := env.Trade.CreateSaleLine(ctx, sale.ID, &trade.SaleLineRequest{
		ProductID:  product.ID,
		Quantity:   2,
		DiscountID: &discount.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Back to school", detail.DiscountName)
	assert.True(t, decimal.RequireFromString("75.00").Equal(detail.FinalPrice()))

	// later edits to the discount do not change what was sold
	_, err = env.Pricing.SetActive(ctx, discount.ID, false)
	require.NoError(t, err)

	sale, err = env.Trade.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("200.00").Equal(sale.Subtotal))
	assert.True(t, decimal.RequireFromString("150.00").Equal(sale.Total))
	assert.True(t, decimal.RequireFromString("75.00").Equal(sale.Details[0].FinalPrice()))

	_, _, err = env.Trade.CreateSaleLine(ctx, sale.ID, &trade.SaleLineRequest{
		ProductID:  product.ID,
		Quantity:   1,
		DiscountID: &discount.ID,
	}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	assert.Equal(t, "discount_id", apperror.FieldOf(err))
	assert.Equal(t, 3, env.Stock(t, product.ID))
}

func TestSaleLineRejectsInactiveProduct(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Old stapler", 5, "7.00")
	_, err := env.Catalog.SetActive(ctx, product.ID, false)
	require.NoError(t, err)

	sale := newSale(t, env)
	_, _, err = env.Trade.CreateSaleLine(ctx, sale.ID, &trade.SaleLineRequest{ProductID: product.ID, Quantity: 1}, nil)
	assert.Equal(t, "product_id", apperror.FieldOf(err))
	assert.Equal(t, 5, env.Stock(t, product.ID))
}

func TestPurchaseLineRaisesStockAndPrice(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "A4 paper", 10, "5.00")
	supplier := env.Supplier(t, "paperco")

	purchase := newPurchase(t, env, supplier.ID, trade.PurchaseLineRequest{
		ProductID: product.ID,
		Quantity:  5,
		UnitPrice: price("1.20"),
	})

	assert.True(t, decimal.RequireFromString("6.00").Equal(purchase.Total))
	assert.Equal(t, catalog.DefaultPaymentMethodCode, purchase.PaymentMethodCode)
	assert.Equal(t, 15, env.Stock(t, product.ID))

	updated, err := env.Catalog.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.20").Equal(updated.PurchasePrice))

	require.NoError(t, env.Trade.VerifyPurchaseLedger(ctx, purchase.ID))
}

func TestPurchaseAboveSalePriceWarns(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	log, hook := logtest.NewNullLogger()
	service := trade.NewService(env.DB, env.Config, log, env.Ledger)

	product := env.Product(t, "Fountain pen", 0, "2.00")
	supplier := env.Supplier(t, "penhouse")

	_, err := service.CreatePurchase(context.Background(), &trade.CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []trade.PurchaseLineRequest{{ProductID: product.ID, Quantity: 2, UnitPrice: price("3.00")}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, env.Stock(t, product.ID))

	var warning *logrus.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warning = entry
		}
	}
	require.NotNil(t, warning)
	assert.Equal(t, product.ID, warning.Data["product_id"])
	assert.Equal(t, "3.00", warning.Data["purchase_price"])
	assert.Equal(t, "2.00", warning.Data["sale_price"])
}

func TestCreatePurchaseChecksReferences(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	supplier := env.Supplier(t, "inkworks")

	_, err := env.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{SupplierID: 999}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = env.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{SupplierID: supplier.ID, PaymentMethod: "ZZ"}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = env.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{SupplierID: supplier.ID, InvoiceNumber: "F-100"}, nil)
	require.NoError(t, err)
	_, err = env.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{SupplierID: supplier.ID, InvoiceNumber: "F-100"}, nil)
	assert.Equal(t, "invoice_number", apperror.FieldOf(err))
}

func TestCancelPendingPurchaseReversesStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Marker", 10, "3.00")
	supplier := env.Supplier(t, "markers")
	purchase := newPurchase(t, env, supplier.ID, trade.PurchaseLineRequest{ProductID: product.ID, Quantity: 4})
	require.Equal(t, 14, env.Stock(t, product.ID))

	cancelled, err := env.Trade.CancelPurchase(ctx, purchase.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, trade.PurchaseStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
	assert.Len(t, cancelled.Details, 1)
	assert.Equal(t, 10, env.Stock(t, product.ID))

	movements := env.Movements(t, product.ID)
	require.Len(t, movements, 3)
	assert.Equal(t, ledger.MovementTypeOut, movements[2].MovementType)
	assert.Equal(t, ledger.ReasonCancellation, movements[2].Reason)
	assert.Equal(t, 4, movements[2].Quantity)

	require.NoError(t, env.Trade.VerifyPurchaseLedger(ctx, purchase.ID))

	_, err = env.Trade.CancelPurchase(ctx, purchase.ID, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))
	assert.Equal(t, 10, env.Stock(t, product.ID))
}

func TestCancelReceivedPurchaseRejected(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Ruler", 2, "1.50")
	supplier := env.Supplier(t, "rulers")
	purchase := newPurchase(t, env, supplier.ID, trade.PurchaseLineRequest{ProductID: product.ID, Quantity: 8})

	received, err := env.Trade.MarkPurchaseReceived(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.PurchaseStatusReceived, received.Status)
	assert.NotNil(t, received.ReceivedAt)

	_, err = env.Trade.CancelPurchase(ctx, purchase.ID, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))
	assert.Equal(t, 10, env.Stock(t, product.ID))

	_, err = env.Trade.MarkPurchaseReceived(ctx, purchase.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))

	_, _, err = env.Trade.CreatePurchaseLine(ctx, purchase.ID, &trade.PurchaseLineRequest{ProductID: product.ID, Quantity: 1}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))
	assert.Equal(t, 10, env.Stock(t, product.ID))
}

func TestCancelPurchaseFailsWhenStockWasSold(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Compass", 0, "4.00")
	supplier := env.Supplier(t, "compasses")
	purchase := newPurchase(t, env, supplier.ID, trade.PurchaseLineRequest{ProductID: product.ID, Quantity: 5})
	newSale(t, env, trade.SaleLineRequest{ProductID: product.ID, Quantity: 5})
	require.Equal(t, 0, env.Stock(t, product.ID))

	_, err := env.Trade.CancelPurchase(ctx, purchase.ID, nil)
	var stockErr *apperror.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))

	reloaded, err := env.Trade.GetPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.PurchaseStatusPending, reloaded.Status)
	assert.Equal(t, 0, env.Stock(t, product.ID))
}

func TestSettleRequiresLines(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	supplier := env.Supplier(t, "empty")
	purchase := newPurchase(t, env, supplier.ID)
	_, err := env.Trade.MarkPurchaseReceived(ctx, purchase.ID)
	assert.Equal(t, "details", apperror.FieldOf(err))

	sale := newSale(t, env)
	_, err = env.Trade.MarkSalePaid(ctx, sale.ID)
	assert.Equal(t, "details", apperror.FieldOf(err))
}

func TestSaleLifecycle(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Scissors", 10, "6.00")
	sale := newSale(t, env, trade.SaleLineRequest{ProductID: product.ID, Quantity: 2})

	_, err := env.Trade.RefundSale(ctx, sale.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))

	paid, err := env.Trade.MarkSalePaid(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.SaleStatusPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)

	_, _, err = env.Trade.CreateSaleLine(ctx, sale.ID, &trade.SaleLineRequest{ProductID: product.ID, Quantity: 1}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))

	_, err = env.Trade.CancelSale(ctx, sale.ID, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))

	refunded, err := env.Trade.RefundSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.SaleStatusRefunded, refunded.Status)
	assert.True(t, refunded.Status.IsSettled())

	// refunding does not touch stock
	assert.Equal(t, 8, env.Stock(t, product.ID))
	require.NoError(t, env.Trade.VerifySaleLedger(ctx, sale.ID))
}

func TestCancelSaleRestoresStock(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	pen := env.Product(t, "Gel pen", 10, "1.00")
	pad := env.Product(t, "Sticky notes", 3, "2.00")
	sale := newSale(t, env,
		trade.SaleLineRequest{ProductID: pen.ID, Quantity: 4},
		trade.SaleLineRequest{ProductID: pad.ID, Quantity: 3},
	)
	require.Equal(t, 0, env.Stock(t, pad.ID))

	cancelled, err := env.Trade.CancelSale(ctx, sale.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, trade.SaleStatusCancelled, cancelled.Status)
	assert.Len(t, cancelled.Details, 2)
	assert.Equal(t, 10, env.Stock(t, pen.ID))
	assert.Equal(t, 3, env.Stock(t, pad.ID))

	require.NoError(t, env.Trade.VerifySaleLedger(ctx, sale.ID))
	require.NoError(t, env.Ledger.Reconcile(ctx, pen.ID))
	require.NoError(t, env.Ledger.Reconcile(ctx, pad.ID))
}

func TestBatchCancelSalesReportsPerItem(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Crayons", 20, "3.00")
	first := newSale(t, env, trade.SaleLineRequest{ProductID: product.ID, Quantity: 2})
	second := newSale(t, env, trade.SaleLineRequest{ProductID: product.ID, Quantity: 3})
	paid := newSale(t, env, trade.SaleLineRequest{ProductID: product.ID, Quantity: 5})
	_, err := env.Trade.MarkSalePaid(ctx, paid.ID)
	require.NoError(t, err)

	result := env.Trade.CancelSales(ctx, []uint{first.ID, paid.ID, 999, second.ID, first.ID}, nil)

	assert.Equal(t, []uint{first.ID, second.ID}, result.Succeeded)
	require.Len(t, result.Failed, 2)
	assert.Contains(t, result.Failed, paid.ID)
	assert.Contains(t, result.Failed, uint(999))
	assert.NotContains(t, result.Failed, first.ID)
	assert.Equal(t, 15, env.Stock(t, product.ID))
}

func TestBatchReceivePurchases(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Folders", 0, "0.80")
	supplier := env.Supplier(t, "folders")
	full := newPurchase(t, env, supplier.ID, trade.PurchaseLineRequest{ProductID: product.ID, Quantity: 10})
	empty := newPurchase(t, env, supplier.ID)

	result := env.Trade.MarkPurchasesReceived(ctx, []uint{full.ID, empty.ID})
	assert.Equal(t, []uint{full.ID}, result.Succeeded)
	assert.Contains(t, result.Failed, empty.ID)
}

func TestVerifyDetectsMissingMovement(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	product := env.Product(t, "Glue stick", 10, "1.10")
	sale := newSale(t, env,
		trade.SaleLineRequest{ProductID: product.ID, Quantity: 1},
		trade.SaleLineRequest{ProductID: product.ID, Quantity: 2},
	)
	require.NoError(t, env.Trade.VerifySaleLedger(ctx, sale.ID))

	require.NoError(t, env.DB.Where("sale_id = ? AND line_id = ?", sale.ID, sale.Details[1].ID).
		Delete(&ledger.StockMovement{}).Error)

	err := env.Trade.VerifySaleLedger(ctx, sale.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindConsistency))
}

func TestListSalesFilters(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	ctx := context.Background()

	pen := env.Product(t, "Ballpoint", 10, "0.90")
	ink := env.Product(t, "Ink", 10, "4.00")
	newSale(t, env, trade.SaleLineRequest{ProductID: pen.ID, Quantity: 1})
	paid := newSale(t, env, trade.SaleLineRequest{ProductID: ink.ID, Quantity: 1})
	_, err := env.Trade.MarkSalePaid(ctx, paid.ID)
	require.NoError(t, err)

	resp, err := env.Trade.ListSales(ctx, &trade.ListRequest{Status: string(trade.SaleStatusPaid)})
	require.NoError(t, err)
	require.Len(t, resp.Sales, 1)
	assert.Equal(t, paid.ID, resp.Sales[0].ID)
	assert.Equal(t, int64(1), resp.Pagination.Total)

	resp, err = env.Trade.ListSales(ctx, &trade.ListRequest{ProductID: pen.ID})
	require.NoError(t, err)
	require.Len(t, resp.Sales, 1)
	assert.NotEqual(t, paid.ID, resp.Sales[0].ID)
}
