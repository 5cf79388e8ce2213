package quotation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/quotient-erp/quotient/internal/shared"
)

var (
	// Item names allow letters, digits, spaces, hyphens, commas, periods,
	// and parentheses.
	itemNameRe = regexp.MustCompile(`^[A-Za-z0-9\s\-,.()]+$`)
	// Phone accepts international "+<country><7-10 digits>" forms with
	// optional separator, or local "0X-XXXXXXX" style numbers.
	phoneRe = regexp.MustCompile(`^\+(0?[1-9][0-9]{0,2})[- ]?\d{7,10}$|^0[0-9]{1,2}-?\d{6,8}$`)

	titleCaser = cases.Title(language.English)
	hundredPct = decimal.NewFromInt(100)
)

// NormalizeItemName trims surrounding whitespace and title-cases the name,
// matching how names were stored historically.
func NormalizeItemName(name string) string {
	return titleCaser.String(strings.TrimSpace(name))
}

// ValidateItemInput checks one incoming item. Validation is complete before
// any mutation is applied, so a failing item aborts the whole operation.
func ValidateItemInput(in ItemInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("item name required: %w", shared.ErrValidation)
	}
	if !itemNameRe.MatchString(name) {
		return fmt.Errorf("item name %q contains invalid characters: %w", in.Name, shared.ErrValidation)
	}
	if in.Qty.IsNegative() {
		return fmt.Errorf("item %q: qty must not be negative: %w", name, shared.ErrValidation)
	}
	if in.Rate.IsNegative() {
		return fmt.Errorf("item %q: rate must not be negative: %w", name, shared.ErrValidation)
	}
	if in.DiscountValue.IsNegative() {
		return fmt.Errorf("item %q: discount value must not be negative: %w", name, shared.ErrValidation)
	}
	switch DiscountType(in.DiscountType) {
	case DiscountPercent, DiscountAmount, "":
		// empty defaults to percent downstream
	default:
		return fmt.Errorf("item %q: discount type must be percent or amount: %w", name, shared.ErrValidation)
	}
	switch in.Unit {
	case "", UnitPiece, UnitMeter:
	default:
		if in.CustomUnit == nil || *in.CustomUnit == "" {
			return fmt.Errorf("item %q: unknown unit %q: %w", name, in.Unit, shared.ErrValidation)
		}
	}
	return nil
}

// ValidateInfoInput checks the optional recipient block.
func ValidateInfoInput(in InfoInput) error {
	if in.Phone != nil && *in.Phone != "" && !phoneRe.MatchString(*in.Phone) {
		return fmt.Errorf("phone %q does not match an accepted format: %w", *in.Phone, shared.ErrValidation)
	}
	return nil
}

// ValidateDocumentFields checks document-level pricing inputs.
func ValidateDocumentFields(subtotalDiscount, vatRate decimal.Decimal) error {
	if subtotalDiscount.IsNegative() {
		return fmt.Errorf("subtotal discount must not be negative: %w", shared.ErrValidation)
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(hundredPct) {
		return fmt.Errorf("vat rate must be between 0 and 100: %w", shared.ErrValidation)
	}
	return nil
}
