// Package pdf renders quotations as PDF documents.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/quotient-erp/quotient/internal/quotation"
)

// Generator renders quotation views with the built-in core fonts.
type Generator struct {
	companyName string
}

// New constructs a Generator. companyName appears in the footer.
func New(companyName string) *Generator {
	return &Generator{companyName: companyName}
}

// Render produces an A4 portrait PDF for the quotation.
func (g *Generator) Render(view quotation.QuotationView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quotation "+view.Number, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Quotation")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("No. %s, dated %s", view.Number, view.CreatedAt.Format("2006-01-02")))
	pdf.Ln(6)
	if view.ValidityDate != nil {
		pdf.Cell(0, 6, "Valid until "+view.ValidityDate.Format("2006-01-02"))
		pdf.Ln(6)
	}

	if info := view.Info; info != nil {
		pdf.Ln(2)
		if info.QuotationTo != nil && *info.QuotationTo != "" {
			pdf.Cell(0, 6, "To: "+*info.QuotationTo)
			pdf.Ln(6)
		}
		if info.Address != nil && *info.Address != "" {
			pdf.Cell(0, 6, *info.Address)
			pdf.Ln(6)
		}
		if info.Phone != nil && *info.Phone != "" {
			pdf.Cell(0, 6, "Phone: "+*info.Phone)
			pdf.Ln(6)
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(80, 7, "Item")
	pdf.Cell(25, 7, "Qty")
	pdf.Cell(15, 7, "Unit")
	pdf.Cell(30, 7, "Rate")
	pdf.Cell(30, 7, "Amount")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range view.Items {
		pdf.Cell(80, 6, trim(item.Name, 45))
		pdf.Cell(25, 6, item.Qty.String())
		pdf.Cell(15, 6, item.EffectiveUnit)
		pdf.Cell(30, 6, item.Rate.String())
		pdf.Cell(30, 6, item.TotalPrice.String())
		pdf.Ln(6)
	}

	pdf.Ln(4)
	totals := view.Totals
	g.totalRow(pdf, "Subtotal", totals.Subtotal.String(), false)
	g.totalRow(pdf, "Discount", totals.TotalDiscount.String(), false)
	g.totalRow(pdf, fmt.Sprintf("VAT (%s%%)", view.VATRate.String()), totals.VAT.String(), false)
	g.totalRow(pdf, "Grand Total", totals.GrandTotal.String(), true)

	if view.Terms != nil && *view.Terms != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(0, 6, "Terms & Conditions")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, *view.Terms, "", "L", false)
	}
	if view.Notes != nil && *view.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, *view.Notes, "", "L", false)
	}

	if g.companyName != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.Cell(0, 5, g.companyName)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) totalRow(pdf *gofpdf.Fpdf, label, value string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	pdf.SetFont("Helvetica", style, 10)
	pdf.Cell(120, 6, "")
	pdf.Cell(30, 6, label)
	pdf.Cell(30, 6, value)
	pdf.Ln(6)
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "..."
}
