package quotation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quotient-erp/quotient/internal/money"
	"github.com/quotient-erp/quotient/internal/shared"
)

// ItemPrice is one item's contribution to the document.
type ItemPrice struct {
	Base           decimal.Decimal `json:"base"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
}

// DocumentTotals are the rolled-up document figures, rounded to the currency
// scale. VAT is computed after all discounts; that ordering is load-bearing.
type DocumentTotals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	VAT           decimal.Decimal `json:"total_vat"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

// PriceItem computes base, discount, and net for a single line. The discount
// is clamped to [0, base]: never negative, never more than the base itself.
func PriceItem(qty, rate decimal.Decimal, discountType DiscountType, discountValue decimal.Decimal) (ItemPrice, error) {
	if qty.IsNegative() {
		return ItemPrice{}, fmt.Errorf("qty must not be negative: %w", shared.ErrValidation)
	}
	if rate.IsNegative() {
		return ItemPrice{}, fmt.Errorf("rate must not be negative: %w", shared.ErrValidation)
	}
	if discountValue.IsNegative() {
		return ItemPrice{}, fmt.Errorf("discount value must not be negative: %w", shared.ErrValidation)
	}

	base := qty.Mul(rate)
	var discount decimal.Decimal
	switch discountType {
	case DiscountPercent:
		discount = money.PercentOf(base, discountValue)
	case DiscountAmount:
		discount = discountValue
	default:
		return ItemPrice{}, fmt.Errorf("unknown discount type %q: %w", discountType, shared.ErrValidation)
	}

	if discount.GreaterThan(base) {
		discount = base
	}
	discount = money.ClampNonNegative(discount)

	return ItemPrice{
		Base:           base,
		DiscountAmount: discount,
		NetAmount:      base.Sub(discount),
	}, nil
}

// PriceItemOf prices an Item record.
func PriceItemOf(item Item) (ItemPrice, error) {
	return PriceItem(item.Qty, item.Rate, item.DiscountType, item.DiscountValue)
}

// PriceDocument rolls all items plus the document-level discount and VAT
// rate into the final figures. The document-level discount is additive with
// per-item discounts. Intermediates keep full precision; outputs are rounded
// half-up to the currency scale.
func PriceDocument(items []Item, subtotalDiscount, vatRate decimal.Decimal) (DocumentTotals, error) {
	if subtotalDiscount.IsNegative() {
		return DocumentTotals{}, fmt.Errorf("subtotal discount must not be negative: %w", shared.ErrValidation)
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(decimal.NewFromInt(100)) {
		return DocumentTotals{}, fmt.Errorf("vat rate must be between 0 and 100: %w", shared.ErrValidation)
	}

	subtotal := money.Zero()
	totalDiscount := subtotalDiscount
	for _, item := range items {
		price, err := PriceItemOf(item)
		if err != nil {
			return DocumentTotals{}, fmt.Errorf("item %q: %w", item.Name, err)
		}
		subtotal = subtotal.Add(price.Base)
		totalDiscount = totalDiscount.Add(price.DiscountAmount)
	}

	vatBase := money.ClampNonNegative(subtotal.Sub(totalDiscount))
	vat := money.PercentOf(vatBase, vatRate)

	return DocumentTotals{
		Subtotal:      money.Round(subtotal),
		TotalDiscount: money.Round(totalDiscount),
		VAT:           money.Round(vat),
		GrandTotal:    money.Round(vatBase.Add(vat)),
	}, nil
}
