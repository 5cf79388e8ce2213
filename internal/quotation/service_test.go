package quotation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotient-erp/quotient/internal/fiscal"
	"github.com/quotient-erp/quotient/internal/numbering"
	"github.com/quotient-erp/quotient/internal/shared"
)

// memoryRepo backs Service tests without postgres.
type memoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	nextItemID int64
	quotations map[int64]*Quotation
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quotations: make(map[int64]*Quotation)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *q
	copied.Items = append([]Item(nil), q.Items...)
	if q.Info != nil {
		info := *q.Info
		copied.Info = &info
	}
	return &copied, nil
}

func (m *memoryRepo) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	m.mu.Lock()
	var id int64 = -1
	for _, q := range m.quotations {
		if q.Number == number {
			id = q.ID
		}
	}
	m.mu.Unlock()
	if id < 0 {
		return nil, shared.ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *memoryRepo) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.quotations))
	for id, q := range m.quotations {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var out []Quotation
	for _, id := range ids {
		q, err := m.Get(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, q Quotation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.quotations {
		if existing.Number == q.Number {
			return 0, ErrDuplicateNumber
		}
	}
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return shared.ErrNotFound
	}
	if v, ok := updates["subtotal_discount"]; ok {
		q.SubtotalDiscount = dec(v.(string))
	}
	if v, ok := updates["vat_rate"]; ok {
		q.VATRate = dec(v.(string))
	}
	if v, ok := updates["lead_id"]; ok {
		lead := v.(int64)
		q.LeadID = &lead
	}
	if v, ok := updates["terms_and_conditions"]; ok {
		terms := v.(string)
		q.Terms = &terms
	}
	if v, ok := updates["additional_notes"]; ok {
		notes := v.(string)
		q.Notes = &notes
	}
	if v, ok := updates["validity_date"]; ok {
		date := v.(time.Time)
		q.ValidityDate = &date
	}
	q.Version++
	q.UpdatedAt = time.Now()
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return shared.ErrNotFound
	}
	q.Status = status
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.quotations, id)
	return nil
}

func (m *memoryRepo) InsertItem(_ context.Context, item Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[item.QuotationID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	m.nextItemID++
	item.ID = m.nextItemID
	q.Items = append(q.Items, item)
	return item.ID, nil
}

func (m *memoryRepo) UpdateItem(_ context.Context, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[item.QuotationID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range q.Items {
		if q.Items[i].ID == item.ID {
			q.Items[i] = item
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) DeleteItem(_ context.Context, quotationID, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[quotationID]
	if !ok {
		return shared.ErrNotFound
	}
	kept := q.Items[:0]
	for _, item := range q.Items {
		if item.ID != itemID {
			kept = append(kept, item)
		}
	}
	q.Items = kept
	return nil
}

func (m *memoryRepo) UpsertInfo(_ context.Context, info Info) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[info.QuotationID]
	if !ok {
		return shared.ErrNotFound
	}
	q.Info = &info
	return nil
}

func (m *memoryRepo) ListExpired(_ context.Context, asOf time.Time) ([]Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quotation
	for _, q := range m.quotations {
		if q.ValidityDate == nil || q.Status == StatusClosed || q.Status == StatusDraft {
			continue
		}
		if q.ValidityDate.Before(asOf) {
			out = append(out, *q)
		}
	}
	return out, nil
}

type recordedAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordedAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordedAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.logs))
	for i, l := range a.logs {
		out[i] = l.Action
	}
	return out
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *recordedAudit) {
	t.Helper()
	repo := newMemoryRepo()
	audit := &recordedAudit{}
	gen := numbering.NewGenerator(numbering.NewMemoryStore(), numbering.NewMemoryLocker(), nil, numbering.Config{})
	resolver, err := fiscal.NewResolver(fiscal.Gregorian{}, 7)
	require.NoError(t, err)
	svc := NewService(repo, gen, resolver, audit, nil)
	svc.now = func() time.Time { return time.Date(2024, time.August, 20, 10, 0, 0, 0, time.UTC) }
	return svc, repo, audit
}

func validCreateRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		SubtotalDiscount: dec("50"),
		Items: []ItemInput{
			{Name: "widget", Qty: dec("10"), Rate: dec("100.00"), DiscountType: "percent", DiscountValue: dec("20"), Unit: UnitPiece},
			{Name: "gadget", Qty: dec("10"), Rate: dec("100.00"), DiscountType: "percent", DiscountValue: dec("20"), Unit: UnitPiece},
		},
		Info: &InfoInput{QuotationTo: strPtr("Acme Traders"), Phone: strPtr("+9779812345678")},
	}
}

func TestServiceCreateAssignsNumberAndDefaults(t *testing.T) {
	svc, _, audit := newTestService(t)

	view, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "Q-24/25-1", view.Number)
	assert.Equal(t, StatusDraft, view.Status)
	assert.Equal(t, 1, view.Version)
	assert.Equal(t, "13", view.VATRate.String(), "vat defaults when omitted")
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Widget", view.Items[0].Name)
	assert.Equal(t, "800.00", view.Items[0].TotalPrice.String())

	assert.Equal(t, "2000.00", view.Totals.Subtotal.String())
	assert.Equal(t, "450.00", view.Totals.TotalDiscount.String())
	assert.Equal(t, "201.50", view.Totals.VAT.String())
	assert.Equal(t, "1751.50", view.Totals.GrandTotal.String())

	require.NotNil(t, view.Info)
	assert.Equal(t, "Acme Traders", *view.Info.QuotationTo)

	assert.Contains(t, audit.actions(), "quotation.created")
}

func TestServiceCreateSequentialNumbers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "Q-24/25-1", first.Number)
	assert.Equal(t, "Q-24/25-2", second.Number)
}

func TestServiceCreateRejectsInvalidItem(t *testing.T) {
	svc, repo, _ := newTestService(t)

	req := validCreateRequest()
	req.Items[1].Rate = dec("-5")
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.quotations, "nothing persisted on validation failure")
}

func TestServiceUpdateReconcilesItems(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	keep := created.Items[0]
	updated, err := svc.Update(ctx, created.ID, UpdateQuotationRequest{
		SubtotalDiscount: decPtr("0"),
		Items: &[]ItemInput{
			{ID: keep.ID, Name: keep.Name, Qty: dec("5"), Rate: dec("100.00"), DiscountType: "percent", DiscountValue: dec("0"), Unit: UnitPiece},
			{Name: "relay", Qty: dec("2"), Rate: dec("30"), DiscountType: "amount", DiscountValue: dec("0"), Unit: UnitPiece},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	names := []string{updated.Items[0].Name, updated.Items[1].Name}
	assert.ElementsMatch(t, []string{"Widget", "Relay"}, names)
	assert.Equal(t, 2, updated.Version, "header update bumps the version")
	// 500 + 60 net, no discounts, 13% VAT.
	assert.Equal(t, "632.80", updated.Totals.GrandTotal.String())
}

func TestServiceUpdateRejectsClosed(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, created.ID, StatusClosed))

	_, err = svc.Update(ctx, created.ID, UpdateQuotationRequest{Notes: strPtr("late edit")})
	assert.ErrorIs(t, err, shared.ErrDocumentImmutable)

	err = svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrDocumentImmutable)
}

func TestServiceLifecycle(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	view, err := svc.Submit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, view.Status)

	view, err = svc.Approve(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, view.Status)

	_, err = svc.Approve(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	view, err = svc.Close(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, view.Status)

	_, err = svc.Submit(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrDocumentImmutable)

	actions := audit.actions()
	assert.Contains(t, actions, "quotation.submit")
	assert.Contains(t, actions, "quotation.approve")
	assert.Contains(t, actions, "quotation.close")
}

func TestServiceRejectRequiresPending(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Reject(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = svc.Submit(ctx, created.ID)
	require.NoError(t, err)
	view, err := svc.Reject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, view.Status)
}

func TestServicePreviewPersistsNothing(t *testing.T) {
	svc, repo, _ := newTestService(t)

	view, err := svc.Preview(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, "1751.50", view.Totals.GrandTotal.String())
	assert.Empty(t, view.Number)
	assert.Empty(t, repo.quotations)
}

func TestServiceExpireOverdue(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()

	past := time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	future := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	req := validCreateRequest()
	req.ValidityDate = &past
	expired, err := svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, expired.ID)
	require.NoError(t, err)

	req = validCreateRequest()
	req.ValidityDate = &future
	current, err := svc.Create(ctx, req)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, current.ID)
	require.NoError(t, err)

	// A draft past its validity date is left alone.
	req = validCreateRequest()
	req.ValidityDate = &past
	draft, err := svc.Create(ctx, req)
	require.NoError(t, err)

	count, err := svc.ExpireOverdue(ctx, time.Date(2024, time.August, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	view, err := svc.Get(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, view.Status)

	view, err = svc.Get(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, view.Status)

	view, err = svc.Get(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, view.Status)

	assert.Contains(t, audit.actions(), "quotation.expired")
}

func TestServiceGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
