package quotation

// ReconcilePlan is the item diff produced by ReconcileItems. Creates and
// updates are applied before deletes so an update-then-delete race on the
// same id cannot leave orphaned state.
type ReconcilePlan struct {
	ToCreate []Item
	ToUpdate []Item
	ToDelete []int64
}

// Empty reports whether applying the plan would change nothing.
func (p ReconcilePlan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}

// ReconcileItems diffs an incoming item set against the stored one. Incoming
// entries with a known id become updates, the rest become creates, and stored
// items absent from the incoming set become deletes. All incoming items are
// validated up front; a single failure aborts the whole plan.
func ReconcileItems(existing []Item, incoming []ItemInput) (ReconcilePlan, error) {
	for _, in := range incoming {
		if err := ValidateItemInput(in); err != nil {
			return ReconcilePlan{}, err
		}
	}

	byID := make(map[int64]Item, len(existing))
	for _, item := range existing {
		byID[item.ID] = item
	}

	var plan ReconcilePlan
	seen := make(map[int64]struct{}, len(incoming))
	for _, in := range incoming {
		current, found := byID[in.ID]
		if in.ID != 0 && found {
			seen[in.ID] = struct{}{}
			updated := itemFromInput(in)
			updated.ID = current.ID
			updated.QuotationID = current.QuotationID
			updated.CreatedAt = current.CreatedAt
			plan.ToUpdate = append(plan.ToUpdate, updated)
			continue
		}
		plan.ToCreate = append(plan.ToCreate, itemFromInput(in))
	}

	for _, item := range existing {
		if _, kept := seen[item.ID]; !kept {
			plan.ToDelete = append(plan.ToDelete, item.ID)
		}
	}
	return plan, nil
}

func itemFromInput(in ItemInput) Item {
	discountType := DiscountType(in.DiscountType)
	if discountType == "" {
		discountType = DiscountPercent
	}
	return Item{
		Name:          NormalizeItemName(in.Name),
		Qty:           in.Qty,
		Rate:          in.Rate,
		DiscountType:  discountType,
		DiscountValue: in.DiscountValue,
		Unit:          in.Unit,
		CustomUnit:    in.CustomUnit,
	}
}
