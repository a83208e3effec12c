// internal/pkg/email/types.go
package email

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeSaleInvoice     EmailType = "sale_invoice"
	EmailTypePurchaseInvoice EmailType = "purchase_invoice"
	EmailTypeSMTPCheck       EmailType = "smtp_check"
)

// Email represents an email message
type Email struct {
	To          []string     `json:"to"`
	CC          []string     `json:"cc,omitempty"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"html_content"`
	Type        EmailType    `json:"type"`
	Attachments []Attachment `json:"-"`
}

// Attachment is a file sent along with the message
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// InvoiceEmailData contains data for the invoice email template
type InvoiceEmailData struct {
	CompanyName   string
	CompanyEmail  string
	RecipientName string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Total         string
}
