package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Receipt holds the fields rendered onto a payment receipt.
type Receipt struct {
	RegistrationID string
	OrderID        string
	ApplicantName  string
	Email          string
	CourseType     string
	AmountCents    int64
	Currency       string
	PaidAt         time.Time
}

// ReceiptRenderer renders payment receipts as PDF documents.
type ReceiptRenderer struct {
	institution string
}

// NewReceiptRenderer constructs a renderer branded with the institution name.
func NewReceiptRenderer(institution string) *ReceiptRenderer {
	if institution == "" {
		institution = "Office of Admissions"
	}
	return &ReceiptRenderer{institution: institution}
}

// Render produces the receipt PDF bytes.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if receipt.RegistrationID == "" || receipt.OrderID == "" {
		return nil, fmt.Errorf("receipt requires registration and order ids")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, r.institution, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Application Fee Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Registration", receipt.RegistrationID},
		{"Order", receipt.OrderID},
		{"Applicant", receipt.ApplicantName},
		{"Email", receipt.Email},
		{"Course", receipt.CourseType},
		{"Amount", formatAmount(receipt.AmountCents, receipt.Currency)},
		{"Paid at", receipt.PaidAt.UTC().Format(time.RFC3339)},
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(135, 8, row[1], "1", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
