package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/config"
)

func TestRenderHTML(t *testing.T) {
	service := NewService(&config.Config{App: config.AppConfig{
		CompanyName:  "Papeleria Central",
		CompanyTaxID: "900123456",
		CompanyEmail: "billing@example.com",
	}})

	doc := &Document{
		Title:     "Sales invoice",
		Number:    "SINV-20240301-00001",
		IssueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:    "pending",
		Party:     Party{Label: "Bill to", Name: "Ana <Gomez>", Email: "ana@example.com"},
		Lines: []Line{{
			Description: "Fountain pen",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("100"),
			Discount:    "Back to school (25%)",
			Total:       decimal.RequireFromString("150"),
		}},
		Subtotal: decimal.RequireFromString("200"),
		Discount: decimal.RequireFromString("50"),
		Total:    decimal.RequireFromString("150"),
	}

	html, err := service.RenderHTML(doc)
	require.NoError(t, err)

	assert.Contains(t, html, "Papeleria Central")
	assert.Contains(t, html, "Tax ID: 900123456")
	assert.Contains(t, html, "SINV-20240301-00001")
	assert.Contains(t, html, "2024-03-31")
	assert.Contains(t, html, "Fountain pen")
	assert.Contains(t, html, "100.00")
	assert.Contains(t, html, "-50.00")
	assert.Contains(t, html, "Ana &lt;Gomez&gt;")
	assert.NotContains(t, html, "Ana <Gomez>")
}

func TestRenderHTMLWithoutDiscount(t *testing.T) {
	service := NewService(&config.Config{})

	html, err := service.RenderHTML(&Document{
		Title:    "Purchase invoice",
		Number:   "F-77",
		Subtotal: decimal.RequireFromString("5"),
		Total:    decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	assert.Contains(t, html, "5.00")
	assert.NotContains(t, html, "<td>Discount</td>")
}
