package quotation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the quotation lifecycle states.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusClosed   Status = "closed"
)

// DiscountType selects how an item discount value is interpreted.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

// Predefined units; CustomUnit overrides when set.
const (
	UnitPiece = "pcs"
	UnitMeter = "m"
)

// Quotation is a priced offer document. Totals are derived from the items on
// every read and never stored as the source of truth.
type Quotation struct {
	ID               int64           `json:"id" db:"id"`
	Number           string          `json:"number" db:"number"`
	LeadID           *int64          `json:"lead_id,omitempty" db:"lead_id"`
	Version          int             `json:"version" db:"version"`
	Status           Status          `json:"status" db:"status"`
	SubtotalDiscount decimal.Decimal `json:"subtotal_discount" db:"subtotal_discount"`
	VATRate          decimal.Decimal `json:"vat_rate" db:"vat_rate"`
	ValidityDate     *time.Time      `json:"validity_date,omitempty" db:"validity_date"`
	Terms            *string         `json:"terms_and_conditions,omitempty" db:"terms_and_conditions"`
	Notes            *string         `json:"additional_notes,omitempty" db:"additional_notes"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	Items            []Item          `json:"items,omitempty" db:"-"`
	Info             *Info           `json:"info,omitempty" db:"-"`
}

// Item is a single quotation line.
type Item struct {
	ID            int64           `json:"id" db:"id"`
	QuotationID   int64           `json:"quotation_id" db:"quotation_id"`
	Name          string          `json:"name" db:"name"`
	Qty           decimal.Decimal `json:"qty" db:"qty"`
	Rate          decimal.Decimal `json:"rate" db:"rate"`
	DiscountType  DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value" db:"discount_value"`
	Unit          string          `json:"unit" db:"unit"`
	CustomUnit    *string         `json:"custom_unit,omitempty" db:"custom_unit"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// EffectiveUnit returns the custom unit when provided, else the predefined one.
func (i Item) EffectiveUnit() string {
	if i.CustomUnit != nil && *i.CustomUnit != "" {
		return *i.CustomUnit
	}
	return i.Unit
}

// Info holds the recipient block, at most one per quotation.
type Info struct {
	QuotationID int64   `json:"quotation_id" db:"quotation_id"`
	QuotationTo *string `json:"quotation_to,omitempty" db:"quotation_to"`
	Address     *string `json:"address,omitempty" db:"address"`
	Phone       *string `json:"phone,omitempty" db:"phone"`
}
