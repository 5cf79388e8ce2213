package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/quotient-erp/quotient/internal/fiscal"
	"github.com/quotient-erp/quotient/internal/numbering"
	"github.com/quotient-erp/quotient/internal/shared"
)

// DefaultVATRate applies when a create request omits the rate.
var DefaultVATRate = decimal.NewFromInt(13)

// NumberPrefix namespaces quotation numbers ahead of the fiscal-year label.
const NumberPrefix = "Q"

// AuditRecorder receives lifecycle events.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates quotation operations: pricing, numbering, item
// reconciliation, and the status state machine.
type Service struct {
	repo     Repository
	numbers  *numbering.Generator
	fiscal   *fiscal.Resolver
	audit    AuditRecorder
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, numbers *numbering.Generator, resolver *fiscal.Resolver, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		numbers:  numbers,
		fiscal:   resolver,
		audit:    audit,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// NextDocumentNumber resolves the fiscal year for date and issues the next
// free number under that prefix.
func (s *Service) NextDocumentNumber(ctx context.Context, date time.Time) (string, error) {
	label, err := s.fiscal.Label(date)
	if err != nil {
		return "", fmt.Errorf("resolve fiscal year: %w", err)
	}
	number, err := s.numbers.Next(ctx, NumberPrefix+"-"+label)
	if err != nil {
		return "", fmt.Errorf("generate number: %w", err)
	}
	return number, nil
}

// Create validates the request, assigns a document number, and persists the
// quotation with its items and info in one transaction.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest) (*QuotationView, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	vatRate := DefaultVATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}

	number, err := s.NextDocumentNumber(ctx, s.now())
	if err != nil {
		return nil, err
	}

	quotation := Quotation{
		Number:           number,
		LeadID:           req.LeadID,
		Version:          1,
		Status:           StatusDraft,
		SubtotalDiscount: req.SubtotalDiscount,
		VATRate:          vatRate,
		ValidityDate:     req.ValidityDate,
		Terms:            req.Terms,
		Notes:            req.Notes,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err = repo.Create(ctx, quotation)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		for _, in := range req.Items {
			item := itemFromInput(in)
			item.QuotationID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
		if req.Info != nil {
			if err := repo.UpsertInfo(ctx, infoFromInput(id, *req.Info)); err != nil {
				return fmt.Errorf("upsert info: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, "quotation.created", id, map[string]any{"number": number})
	return s.Get(ctx, id)
}

// Get loads a quotation and recomputes its derived totals.
func (s *Service) Get(ctx context.Context, id int64) (*QuotationView, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view, err := NewQuotationView(*q)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// List returns quotation views matching the filter plus the total count.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationView, int, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, fmt.Errorf("%v: %w", err, shared.ErrValidation)
	}
	quotations, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	views := make([]QuotationView, 0, len(quotations))
	for _, q := range quotations {
		view, err := NewQuotationView(q)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, view)
	}
	return views, total, nil
}

// Update applies header changes and reconciles the incoming item set against
// the stored one. Creates and updates run before deletes; a validation
// failure anywhere aborts the whole operation.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest) (*QuotationView, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := EnsureMutable(existing.Status); err != nil {
		return nil, err
	}
	if err := s.validateUpdate(*existing, req); err != nil {
		return nil, err
	}

	var plan ReconcilePlan
	if req.Items != nil {
		plan, err = ReconcileItems(existing.Items, *req.Items)
		if err != nil {
			return nil, err
		}
	}

	updates := headerUpdates(req)
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.Update(ctx, id, updates); err != nil {
				return fmt.Errorf("update quotation: %w", err)
			}
		}
		for _, item := range plan.ToCreate {
			item.QuotationID = id
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
		for _, item := range plan.ToUpdate {
			if err := repo.UpdateItem(ctx, item); err != nil {
				return fmt.Errorf("update item: %w", err)
			}
		}
		for _, itemID := range plan.ToDelete {
			if err := repo.DeleteItem(ctx, id, itemID); err != nil {
				return fmt.Errorf("delete item: %w", err)
			}
		}
		if req.Info != nil {
			if err := repo.UpsertInfo(ctx, infoFromInput(id, *req.Info)); err != nil {
				return fmt.Errorf("upsert info: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, "quotation.updated", id, nil)
	return s.Get(ctx, id)
}

// Delete removes a quotation; items and info cascade with it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := EnsureMutable(existing.Status); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "quotation.deleted", id, map[string]any{"number": existing.Number})
	return nil
}

// Submit moves a draft quotation into pending.
func (s *Service) Submit(ctx context.Context, id int64) (*QuotationView, error) {
	return s.transition(ctx, id, ActionSubmit)
}

// Approve marks a quotation approved.
func (s *Service) Approve(ctx context.Context, id int64) (*QuotationView, error) {
	return s.transition(ctx, id, ActionApprove)
}

// Reject marks a pending quotation rejected.
func (s *Service) Reject(ctx context.Context, id int64) (*QuotationView, error) {
	return s.transition(ctx, id, ActionReject)
}

// Close freezes a quotation permanently.
func (s *Service) Close(ctx context.Context, id int64) (*QuotationView, error) {
	return s.transition(ctx, id, ActionClose)
}

func (s *Service) transition(ctx context.Context, id int64, action Action) (*QuotationView, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(existing.Status, action)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, err
	}
	s.record(ctx, "quotation."+string(action), id, map[string]any{
		"from": string(existing.Status),
		"to":   string(next),
	})
	return s.Get(ctx, id)
}

// Preview prices a request without persisting anything.
func (s *Service) Preview(ctx context.Context, req CreateQuotationRequest) (*QuotationView, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}
	vatRate := DefaultVATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	q := Quotation{
		Status:           StatusDraft,
		SubtotalDiscount: req.SubtotalDiscount,
		VATRate:          vatRate,
	}
	for _, in := range req.Items {
		q.Items = append(q.Items, itemFromInput(in))
	}
	view, err := NewQuotationView(q)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ExpireOverdue closes non-draft quotations whose validity date has passed.
// Used by the worker sweep.
func (s *Service) ExpireOverdue(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := s.repo.ListExpired(ctx, asOf)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, q := range overdue {
		next, err := Transition(q.Status, ActionClose)
		if err != nil {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, q.ID, next); err != nil {
			return closed, err
		}
		s.record(ctx, "quotation.expired", q.ID, map[string]any{"number": q.Number})
		closed++
	}
	return closed, nil
}

func (s *Service) validateCreate(req CreateQuotationRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, shared.ErrValidation)
	}
	vatRate := DefaultVATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	if err := ValidateDocumentFields(req.SubtotalDiscount, vatRate); err != nil {
		return err
	}
	for _, in := range req.Items {
		if err := ValidateItemInput(in); err != nil {
			return err
		}
	}
	if req.Info != nil {
		if err := ValidateInfoInput(*req.Info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) validateUpdate(existing Quotation, req UpdateQuotationRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("%v: %w", err, shared.ErrValidation)
	}
	subtotalDiscount := existing.SubtotalDiscount
	if req.SubtotalDiscount != nil {
		subtotalDiscount = *req.SubtotalDiscount
	}
	vatRate := existing.VATRate
	if req.VATRate != nil {
		vatRate = *req.VATRate
	}
	if err := ValidateDocumentFields(subtotalDiscount, vatRate); err != nil {
		return err
	}
	if req.Info != nil {
		if err := ValidateInfoInput(*req.Info); err != nil {
			return err
		}
	}
	return nil
}

func headerUpdates(req UpdateQuotationRequest) map[string]interface{} {
	updates := make(map[string]interface{})
	if req.LeadID != nil {
		updates["lead_id"] = *req.LeadID
	}
	if req.SubtotalDiscount != nil {
		updates["subtotal_discount"] = req.SubtotalDiscount.String()
	}
	if req.VATRate != nil {
		updates["vat_rate"] = req.VATRate.String()
	}
	if req.ValidityDate != nil {
		updates["validity_date"] = *req.ValidityDate
	}
	if req.Terms != nil {
		updates["terms_and_conditions"] = *req.Terms
	}
	if req.Notes != nil {
		updates["additional_notes"] = *req.Notes
	}
	return updates
}

func infoFromInput(quotationID int64, in InfoInput) Info {
	return Info{
		QuotationID: quotationID,
		QuotationTo: in.QuotationTo,
		Address:     in.Address,
		Phone:       in.Phone,
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		Action:   action,
		Entity:   "quotation",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
