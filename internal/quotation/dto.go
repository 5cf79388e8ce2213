package quotation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quotient-erp/quotient/internal/money"
)

// ItemInput is an incoming item row. A zero or unknown ID means create; a
// known ID means update in place.
type ItemInput struct {
	ID            int64           `json:"id,omitempty"`
	Name          string          `json:"name" validate:"required,max=255"`
	Qty           decimal.Decimal `json:"qty"`
	Rate          decimal.Decimal `json:"rate"`
	DiscountType  string          `json:"discount_type" validate:"omitempty,oneof=percent amount"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Unit          string          `json:"unit" validate:"omitempty,max=50"`
	CustomUnit    *string         `json:"custom_unit,omitempty" validate:"omitempty,max=50"`
}

// InfoInput is the incoming recipient block.
type InfoInput struct {
	QuotationTo *string `json:"quotation_to,omitempty" validate:"omitempty,max=255"`
	Address     *string `json:"address,omitempty"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=25"`
}

// CreateQuotationRequest creates a quotation with nested items and info.
type CreateQuotationRequest struct {
	LeadID           *int64           `json:"lead_id,omitempty"`
	SubtotalDiscount decimal.Decimal  `json:"subtotal_discount"`
	VATRate          *decimal.Decimal `json:"vat_rate,omitempty"`
	ValidityDate     *time.Time       `json:"validity_date,omitempty"`
	Terms            *string          `json:"terms_and_conditions,omitempty"`
	Notes            *string          `json:"additional_notes,omitempty"`
	Items            []ItemInput      `json:"items" validate:"dive"`
	Info             *InfoInput       `json:"info,omitempty"`
}

// UpdateQuotationRequest carries partial header updates plus an optional full
// replacement item set, reconciled against the stored one.
type UpdateQuotationRequest struct {
	LeadID           *int64           `json:"lead_id,omitempty"`
	SubtotalDiscount *decimal.Decimal `json:"subtotal_discount,omitempty"`
	VATRate          *decimal.Decimal `json:"vat_rate,omitempty"`
	ValidityDate     *time.Time       `json:"validity_date,omitempty"`
	Terms            *string          `json:"terms_and_conditions,omitempty"`
	Notes            *string          `json:"additional_notes,omitempty"`
	Items            *[]ItemInput     `json:"items,omitempty" validate:"omitempty,dive"`
	Info             *InfoInput       `json:"info,omitempty"`
}

// ListQuotationsRequest filters the quotation listing.
type ListQuotationsRequest struct {
	Status   *Status    `json:"status,omitempty"`
	LeadID   *int64     `json:"lead_id,omitempty"`
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`
	Limit    int        `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int        `json:"offset" validate:"gte=0"`
}

// ItemView is an item plus its computed total price.
type ItemView struct {
	Item
	EffectiveUnit string          `json:"effective_unit"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// QuotationView is a quotation plus its recomputed totals.
type QuotationView struct {
	Quotation
	Items  []ItemView     `json:"items"`
	Totals DocumentTotals `json:"totals"`
}

// NewQuotationView prices the document for presentation.
func NewQuotationView(q Quotation) (QuotationView, error) {
	totals, err := PriceDocument(q.Items, q.SubtotalDiscount, q.VATRate)
	if err != nil {
		return QuotationView{}, err
	}
	views := make([]ItemView, 0, len(q.Items))
	for _, item := range q.Items {
		price, err := PriceItemOf(item)
		if err != nil {
			return QuotationView{}, err
		}
		views = append(views, ItemView{
			Item:          item,
			EffectiveUnit: item.EffectiveUnit(),
			TotalPrice:    money.Round(price.NetAmount),
		})
	}
	view := QuotationView{Quotation: q, Items: views, Totals: totals}
	view.Quotation.Items = nil
	return view, nil
}
