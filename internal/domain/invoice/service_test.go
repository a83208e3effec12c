package invoice_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/invoice"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/email"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
	"github.com/your-org/stationery-backend/internal/pkg/pdf"
	"github.com/your-org/stationery-backend/internal/pkg/testdb"
)

type fakeRenderer struct {
	docs []*pdf.Document
	err  error
}

func (r *fakeRenderer) GenerateInvoice(doc *pdf.Document) (*bytes.Buffer, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.docs = append(r.docs, doc)
	return bytes.NewBufferString("%PDF-1.4 " + doc.Number), nil
}

type sentInvoice struct {
	to   string
	kind email.EmailType
	data email.InvoiceEmailData
	pdf  []byte
}

type fakeMailer struct {
	enabled bool
	sent    []sentInvoice
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) SendInvoiceEmail(ctx context.Context, to string, kind email.EmailType, data email.InvoiceEmailData, pdf []byte) error {
	m.sent = append(m.sent, sentInvoice{to: to, kind: kind, data: data, pdf: pdf})
	return nil
}

type fixture struct {
	*testdb.Env
	invoices *invoice.Service
	renderer *fakeRenderer
	mailer   *fakeMailer
}

func setup(t *testing.T) *fixture {
	t.Helper()

	env := testdb.NewEnv(t, nil)
	renderer := &fakeRenderer{}
	mailer := &fakeMailer{enabled: true}
	return &fixture{
		Env:      env,
		invoices: invoice.NewService(env.DB, env.Config, logger.Discard(), renderer, mailer),
		renderer: renderer,
		mailer:   mailer,
	}
}

func (f *fixture) sale(t *testing.T, customerID uint, productID uint, quantity int) *trade.Sale {
	t.Helper()

	sale, err := f.Trade.CreateSale(context.Background(), &trade.CreateSaleRequest{
		CustomerID: customerID,
		Lines:      []trade.SaleLineRequest{{ProductID: productID, Quantity: quantity}},
	}, nil)
	require.NoError(t, err)
	return sale
}

func today() time.Time {
	y, m, d := time.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIssueSaleInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Notebook", 10, "2.50")
	sale := f.sale(t, testdb.WalkInCustomerID, product.ID, 3)

	inv, err := f.invoices.IssueSaleInvoice(ctx, sale.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SINV-"+today().Format("20060102")+"-00001", inv.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("7.50").Equal(inv.TotalAmount))
	assert.True(t, inv.Discount.IsZero())
	assert.True(t, today().Equal(inv.IssueDate.UTC()))
	assert.True(t, today().AddDate(0, 0, 30).Equal(inv.DueDate.UTC()))
	assert.Equal(t, invoice.DueStatusPending, inv.DueStatus(today()))

	_, err = f.invoices.IssueSaleInvoice(ctx, sale.ID, &invoice.IssueRequest{}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))

	second := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)
	inv2, err := f.invoices.IssueSaleInvoice(ctx, second.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SINV-"+today().Format("20060102")+"-00002", inv2.InvoiceNumber)

	_, err = f.Trade.MarkSalePaid(ctx, sale.ID)
	require.NoError(t, err)
	inv, err = f.invoices.GetSaleInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.DueStatusPaid, inv.DueStatus(today()))
}

func TestGeneratedNumberFollowsManualOnes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := "SINV-" + today().Format("20060102") + "-"

	product := f.Product(t, "Ruler", 10, "1.00")
	manual := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)
	_, err := f.invoices.IssueSaleInvoice(ctx, manual.ID, &invoice.IssueRequest{InvoiceNumber: base + "00002"}, nil)
	require.NoError(t, err)

	named := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)
	_, err = f.invoices.IssueSaleInvoice(ctx, named.ID, &invoice.IssueRequest{InvoiceNumber: base + "counter"}, nil)
	require.NoError(t, err)

	generated := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)
	inv, err := f.invoices.IssueSaleInvoice(ctx, generated.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, base+"00003", inv.InvoiceNumber)
}

func TestIssuePurchaseInvoiceNumbering(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Pens", 0, "1.00")
	supplier := f.Supplier(t, "penco")
	withNumber, err := f.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{
		SupplierID:    supplier.ID,
		InvoiceNumber: "F-77",
		Lines:         []trade.PurchaseLineRequest{{ProductID: product.ID, Quantity: 10}},
	}, nil)
	require.NoError(t, err)

	inv, err := f.invoices.IssuePurchaseInvoice(ctx, withNumber.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "F-77", inv.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("5.00").Equal(inv.TotalAmount))
	assert.Equal(t, invoice.DueStatusCurrent, inv.DueStatus(today()))

	plain, err := f.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{SupplierID: supplier.ID}, nil)
	require.NoError(t, err)
	_, err = f.invoices.IssuePurchaseInvoice(ctx, plain.ID, &invoice.IssueRequest{InvoiceNumber: "F-77"}, nil)
	assert.Equal(t, "invoice_number", apperror.FieldOf(err))

	inv, err = f.invoices.IssuePurchaseInvoice(ctx, plain.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "PINV-"+today().Format("20060102")+"-00001", inv.InvoiceNumber)
}

func TestCancelledTransactionsCannotBeInvoiced(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Envelopes", 10, "0.30")
	cancelled := f.sale(t, testdb.WalkInCustomerID, product.ID, 2)
	_, err := f.Trade.CancelSale(ctx, cancelled.ID, nil)
	require.NoError(t, err)

	_, err = f.invoices.IssueSaleInvoice(ctx, cancelled.ID, &invoice.IssueRequest{}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))

	_, err = f.invoices.IssueSaleInvoice(ctx, 999, &invoice.IssueRequest{}, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	// invoices of transactions cancelled afterwards become void
	supplier := f.Supplier(t, "envelopes")
	purchase, err := f.Trade.CreatePurchase(ctx, &trade.CreatePurchaseRequest{
		SupplierID: supplier.ID,
		Lines:      []trade.PurchaseLineRequest{{ProductID: product.ID, Quantity: 5}},
	}, nil)
	require.NoError(t, err)
	inv, err := f.invoices.IssuePurchaseInvoice(ctx, purchase.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	_, err = f.Trade.CancelPurchase(ctx, purchase.ID, nil)
	require.NoError(t, err)

	inv, err = f.invoices.GetPurchaseInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.DueStatusVoid, inv.DueStatus(today()))
}

func TestIssueRejectsDueBeforeIssue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Clips", 10, "0.10")
	sale := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)

	issue := today()
	due := issue.AddDate(0, 0, -1)
	_, err := f.invoices.IssueSaleInvoice(ctx, sale.ID, &invoice.IssueRequest{IssueDate: &issue, DueDate: &due}, nil)
	assert.Equal(t, "due_date", apperror.FieldOf(err))
}

func TestOverdueSaleInvoices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Toner", 10, "45.00")
	late := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)
	onTime := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)

	issued := today().AddDate(0, 0, -40)
	_, err := f.invoices.IssueSaleInvoice(ctx, late.ID, &invoice.IssueRequest{IssueDate: &issued}, nil)
	require.NoError(t, err)
	_, err = f.invoices.IssueSaleInvoice(ctx, onTime.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)

	count, err := f.invoices.CountOverdueSaleInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	overdue, err := f.invoices.ListOverdueSaleInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].SaleID)

	listed, err := f.invoices.ListSaleInvoices(ctx, invoice.DueStatusOverdue)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, late.ID, listed[0].SaleID)

	_, err = f.Trade.MarkSalePaid(ctx, late.ID)
	require.NoError(t, err)
	count, err = f.invoices.CountOverdueSaleInvoices(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRenderSalePDF(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Planner", 10, "12.00")
	sale := f.sale(t, testdb.WalkInCustomerID, product.ID, 2)
	inv, err := f.invoices.IssueSaleInvoice(ctx, sale.ID, &invoice.IssueRequest{Notes: "thanks"}, nil)
	require.NoError(t, err)

	rendered, err := f.invoices.RenderSalePDF(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber+".pdf", rendered.Filename)
	assert.Contains(t, string(rendered.Content), inv.InvoiceNumber)

	require.Len(t, f.renderer.docs, 1)
	doc := f.renderer.docs[0]
	assert.Equal(t, "Walk-in customer", doc.Party.Name)
	assert.Equal(t, "thanks", doc.Notes)
	assert.Equal(t, string(invoice.DueStatusPending), doc.Status)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "Planner", doc.Lines[0].Description)
	assert.True(t, decimal.RequireFromString("24.00").Equal(doc.Lines[0].Total))

	f.renderer.err = errors.New("wkhtmltopdf not found")
	_, err = f.invoices.RenderSalePDF(ctx, inv.ID)
	require.Error(t, err)
	assert.Empty(t, apperror.KindOf(err))
}

func TestSendSaleInvoice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	product := f.Product(t, "Backpack", 5, "30.00")
	customer, err := f.Catalog.CreateCustomer(ctx, &catalog.CustomerRequest{
		Name:  "Ana Gomez",
		Email: "ana@example.com",
	})
	require.NoError(t, err)

	walkIn := f.sale(t, testdb.WalkInCustomerID, product.ID, 1)
	walkInInvoice, err := f.invoices.IssueSaleInvoice(ctx, walkIn.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)
	err = f.invoices.SendSaleInvoice(ctx, walkInInvoice.ID)
	assert.Equal(t, "email", apperror.FieldOf(err))

	sale := f.sale(t, customer.ID, product.ID, 1)
	inv, err := f.invoices.IssueSaleInvoice(ctx, sale.ID, &invoice.IssueRequest{}, nil)
	require.NoError(t, err)

	f.mailer.enabled = false
	err = f.invoices.SendSaleInvoice(ctx, inv.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateTransition))
	assert.Empty(t, f.mailer.sent)

	f.mailer.enabled = true
	require.NoError(t, f.invoices.SendSaleInvoice(ctx, inv.ID))
	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, "ana@example.com", sent.to)
	assert.Equal(t, email.EmailTypeSaleInvoice, sent.kind)
	assert.Equal(t, inv.InvoiceNumber, sent.data.InvoiceNumber)
	assert.Equal(t, "30.00", sent.data.Total)
	assert.NotEmpty(t, sent.pdf)
}
