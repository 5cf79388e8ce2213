package quotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotient-erp/quotient/internal/shared"
)

func existingItems() []Item {
	return []Item{
		{ID: 1, QuotationID: 7, Name: "Copper Wire", Qty: dec("10"), Rate: dec("5"), DiscountType: DiscountPercent, DiscountValue: dec("0"), Unit: UnitMeter},
		{ID: 2, QuotationID: 7, Name: "Switch", Qty: dec("4"), Rate: dec("120"), DiscountType: DiscountPercent, DiscountValue: dec("10"), Unit: UnitPiece},
	}
}

func TestReconcileItemsMixedPlan(t *testing.T) {
	incoming := []ItemInput{
		{ID: 2, Name: "Switch", Qty: dec("6"), Rate: dec("120"), DiscountType: "percent", DiscountValue: dec("10"), Unit: UnitPiece},
		{Name: "junction box", Qty: dec("3"), Rate: dec("45"), DiscountType: "amount", DiscountValue: dec("5"), Unit: UnitPiece},
	}

	plan, err := ReconcileItems(existingItems(), incoming)
	require.NoError(t, err)

	require.Len(t, plan.ToUpdate, 1)
	assert.Equal(t, int64(2), plan.ToUpdate[0].ID)
	assert.Equal(t, int64(7), plan.ToUpdate[0].QuotationID)
	assert.True(t, plan.ToUpdate[0].Qty.Equal(dec("6")))

	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, "Junction Box", plan.ToCreate[0].Name, "names are normalized on the way in")
	assert.Zero(t, plan.ToCreate[0].ID)

	assert.Equal(t, []int64{1}, plan.ToDelete)
}

func TestReconcileItemsIdempotent(t *testing.T) {
	existing := existingItems()
	incoming := []ItemInput{
		{ID: 1, Name: "Copper Wire", Qty: dec("10"), Rate: dec("5"), DiscountType: "percent", DiscountValue: dec("0"), Unit: UnitMeter},
		{ID: 2, Name: "Switch", Qty: dec("4"), Rate: dec("120"), DiscountType: "percent", DiscountValue: dec("10"), Unit: UnitPiece},
	}

	plan, err := ReconcileItems(existing, incoming)
	require.NoError(t, err)
	assert.Empty(t, plan.ToCreate)
	assert.Empty(t, plan.ToDelete)
	require.Len(t, plan.ToUpdate, 2)

	// Feeding the reconciled state back through produces the same plan shape:
	// updates only, no creates or deletes.
	again, err := ReconcileItems(plan.ToUpdate, incoming)
	require.NoError(t, err)
	assert.Empty(t, again.ToCreate)
	assert.Empty(t, again.ToDelete)
	assert.Len(t, again.ToUpdate, 2)
}

func TestReconcileItemsEmptyIncomingDeletesAll(t *testing.T) {
	plan, err := ReconcileItems(existingItems(), nil)
	require.NoError(t, err)
	assert.Empty(t, plan.ToCreate)
	assert.Empty(t, plan.ToUpdate)
	assert.ElementsMatch(t, []int64{1, 2}, plan.ToDelete)
}

func TestReconcileItemsUnknownIDBecomesCreate(t *testing.T) {
	incoming := []ItemInput{
		{ID: 99, Name: "Mystery Part", Qty: dec("1"), Rate: dec("10"), DiscountType: "percent", DiscountValue: dec("0"), Unit: UnitPiece},
	}
	plan, err := ReconcileItems(existingItems(), incoming)
	require.NoError(t, err)
	require.Len(t, plan.ToCreate, 1)
	assert.Empty(t, plan.ToUpdate)
	assert.ElementsMatch(t, []int64{1, 2}, plan.ToDelete)
}

func TestReconcileItemsValidatesBeforePlanning(t *testing.T) {
	incoming := []ItemInput{
		{ID: 1, Name: "Copper Wire", Qty: dec("10"), Rate: dec("5"), DiscountType: "percent", DiscountValue: dec("0"), Unit: UnitMeter},
		{Name: "", Qty: dec("1"), Rate: dec("1"), DiscountType: "percent", DiscountValue: dec("0")},
	}
	plan, err := ReconcileItems(existingItems(), incoming)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.True(t, plan.Empty(), "no partial plan on validation failure")
}

func TestReconcileItemsDefaultsDiscountType(t *testing.T) {
	incoming := []ItemInput{
		{Name: "Bolt", Qty: dec("100"), Rate: dec("0.50"), DiscountValue: dec("0"), Unit: UnitPiece},
	}
	plan, err := ReconcileItems(nil, incoming)
	require.NoError(t, err)
	require.Len(t, plan.ToCreate, 1)
	assert.Equal(t, DiscountPercent, plan.ToCreate[0].DiscountType)
}
