package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotient-erp/quotient/internal/quotation"
)

func TestRender(t *testing.T) {
	to := "Acme Traders"
	phone := "+9779812345678"
	terms := "Valid for 30 days. Prices exclude transport."

	q := quotation.Quotation{
		ID:               1,
		Number:           "Q-81/82-7",
		Status:           quotation.StatusPending,
		SubtotalDiscount: decimal.NewFromInt(50),
		VATRate:          decimal.NewFromInt(13),
		Terms:            &terms,
		CreatedAt:        time.Date(2024, time.August, 20, 0, 0, 0, 0, time.UTC),
		Items: []quotation.Item{
			{Name: "Copper Wire", Qty: decimal.NewFromInt(10), Rate: decimal.NewFromInt(100),
				DiscountType: quotation.DiscountPercent, DiscountValue: decimal.NewFromInt(20), Unit: quotation.UnitMeter},
		},
		Info: &quotation.Info{QuotationTo: &to, Phone: &phone},
	}
	view, err := quotation.NewQuotationView(q)
	require.NoError(t, err)

	out, err := New("Quotient Engineering").Render(view)
	require.NoError(t, err)
	assert.True(t, len(out) > 500, "pdf should have substance, got %d bytes", len(out))
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestRenderEmptyDocument(t *testing.T) {
	view, err := quotation.NewQuotationView(quotation.Quotation{
		Number:  "Q-81/82-1",
		Status:  quotation.StatusDraft,
		VATRate: decimal.NewFromInt(13),
	})
	require.NoError(t, err)

	out, err := New("").Render(view)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}
