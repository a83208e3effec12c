// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/shopspring/decimal"
	"github.com/your-org/stationery-backend/internal/config"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	if cfg.External.PDF.BinaryPath != "" {
		wkhtmltopdf.SetPath(cfg.External.PDF.BinaryPath)
	}
	return &Service{
		config: cfg,
	}
}

// Document is everything printed on an invoice
type Document struct {
	Title     string
	Number    string
	IssueDate time.Time
	DueDate   time.Time
	Status    string
	Party     Party
	Lines     []Line
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	Notes     string
}

// Party is the supplier or customer on the invoice
type Party struct {
	Label   string
	Name    string
	TaxID   string
	Address string
	Email   string
	Phone   string
}

// Line is one invoice row
type Line struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    string
	Total       decimal.Decimal
}

// CompanyInfo represents the issuing company
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	TaxID   string
}

type templateData struct {
	*Document
	Company CompanyInfo
}

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

// GenerateInvoice renders doc to PDF
func (s *Service) GenerateInvoice(doc *Document) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	dpi := s.config.External.PDF.DPI
	if dpi == 0 {
		dpi = 300
	}
	pdfg.Dpi.Set(dpi)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]/[topage]")
	page.FooterFontSize.Set(8)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderHTML renders the invoice page that is fed to wkhtmltopdf
func (s *Service) RenderHTML(doc *Document) (string, error) {
	data := templateData{
		Document: doc,
		Company: CompanyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Phone:   s.config.App.CompanyPhone,
			Email:   s.config.App.CompanyEmail,
			TaxID:   s.config.App.CompanyTaxID,
		},
	}

	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}} {{.Number}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { width: 100%; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .header td { vertical-align: top; }
        .invoice-title { font-size: 26px; font-weight: bold; color: #1f4e79; margin-bottom: 10px; }
        .section-title { font-size: 15px; font-weight: bold; margin-bottom: 8px; color: #374151; }
        .items-table { width: 100%; border-collapse: collapse; margin: 25px 0; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 10px 8px; text-align: left; }
        .items-table th { background-color: #f5f6f8; }
        .num { text-align: right !important; white-space: nowrap; }
        .totals { float: right; width: 300px; border-collapse: collapse; }
        .totals td { padding: 8px; border-bottom: 1px solid #eee; }
        .totals .total-row td { font-size: 17px; font-weight: bold; border-top: 2px solid #333; }
        .status { display: inline-block; padding: 3px 8px; border-radius: 4px; font-size: 12px; font-weight: bold; text-transform: uppercase; background: #eef2f7; }
        .footer { clear: both; margin-top: 60px; padding-top: 15px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 11px; }
    </style>
</head>
<body>
    <table class="header">
        <tr>
            <td>
                <h2>{{.Company.Name}}</h2>
                {{if .Company.TaxID}}<p>Tax ID: {{.Company.TaxID}}</p>{{end}}
                <p>{{.Company.Address}}</p>
                <p>{{.Company.Phone}} {{.Company.Email}}</p>
            </td>
            <td style="text-align: right;">
                <div class="invoice-title">{{.Title}}</div>
                <p><strong>Number:</strong> {{.Number}}</p>
                <p><strong>Issued:</strong> {{.IssueDate.Format "2006-01-02"}}</p>
                <p><strong>Due:</strong> {{.DueDate.Format "2006-01-02"}}</p>
                {{if .Status}}<p><span class="status">{{.Status}}</span></p>{{end}}
            </td>
        </tr>
    </table>

    <div>
        <div class="section-title">{{.Party.Label}}</div>
        <p><strong>{{.Party.Name}}</strong></p>
        {{if .Party.TaxID}}<p>Document: {{.Party.TaxID}}</p>{{end}}
        {{if .Party.Address}}<p>{{.Party.Address}}</p>{{end}}
        {{if .Party.Email}}<p>{{.Party.Email}}</p>{{end}}
        {{if .Party.Phone}}<p>{{.Party.Phone}}</p>{{end}}
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th class="num">Qty</th>
                <th class="num">Unit price</th>
                <th>Discount</th>
                <th class="num">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td>{{.Description}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{.UnitPrice.StringFixed 2}}</td>
                <td>{{.Discount}}</td>
                <td class="num">{{.Total.StringFixed 2}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <table class="totals">
        <tr><td>Subtotal</td><td class="num">{{.Subtotal.StringFixed 2}}</td></tr>
        {{if .Discount.IsPositive}}<tr><td>Discount</td><td class="num">-{{.Discount.StringFixed 2}}</td></tr>{{end}}
        <tr class="total-row"><td>Total</td><td class="num">{{.Total.StringFixed 2}}</td></tr>
    </table>

    {{if .Notes}}<p style="clear: both; padding-top: 20px;">{{.Notes}}</p>{{end}}

    <div class="footer">
        <p>Questions about this invoice: {{.Company.Email}} {{.Company.Phone}}</p>
    </div>
</body>
</html>
`
