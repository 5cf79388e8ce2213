package quotation

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/singleflight"

	"github.com/quotient-erp/quotient/internal/platform/httpx"
)

// PDFRenderer turns a priced quotation into a PDF document.
type PDFRenderer interface {
	Render(view QuotationView) ([]byte, error)
}

// Handler wires HTTP interactions for quotations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	pdf       PDFRenderer
	pdfGroup  singleflight.Group
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. The PDF renderer is optional; without it
// the export route responds 404.
func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer) *Handler {
	limiter := httprate.Limit(20, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:    logger,
		service:   service,
		pdf:       pdf,
		rateLimit: limiter,
	}
}

// MountRoutes attaches the quotation routes onto r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotations", h.List)
	r.Post("/quotations", h.Create)
	r.Post("/quotations/preview", h.Preview)
	r.Get("/quotations/{id}", h.Show)
	r.Put("/quotations/{id}", h.Update)
	r.Delete("/quotations/{id}", h.Delete)
	r.Post("/quotations/{id}/submit", h.Submit)
	r.Post("/quotations/{id}/approve", h.Approve)
	r.Post("/quotations/{id}/reject", h.Reject)
	r.Post("/quotations/{id}/close", h.Close)
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Get("/quotations/{id}/pdf", h.ExportPDF)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListQuotationsRequest{}

	if status := r.URL.Query().Get("status"); status != "" {
		s := Status(status)
		req.Status = &s
	}
	if lead := r.URL.Query().Get("lead_id"); lead != "" {
		id, err := strconv.ParseInt(lead, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "lead_id must be an integer")
			return
		}
		req.LeadID = &id
	}
	req.DateFrom = parseDate(r.URL.Query().Get("date_from"))
	req.DateTo = parseDate(r.URL.Query().Get("date_to"))
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	quotations, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list quotations failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotations": quotations,
		"total":      total,
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	view, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create quotation failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("quotation created", "id", view.ID, "number", view.Number)
	httpx.JSON(w, http.StatusCreated, view)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	view, err := h.service.Preview(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req UpdateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	view, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update quotation failed", "id", id, "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reject)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64) (*QuotationView, error)) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	view, err := apply(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("quotation transitioned", "id", id, "status", view.Status)
	httpx.JSON(w, http.StatusOK, view)
}

// ExportPDF renders the quotation as a PDF. Concurrent requests for the same
// document share one render.
func (h *Handler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "pdf export is not configured")
		return
	}
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	resultChan := h.pdfGroup.DoChan(strconv.FormatInt(id, 10), func() (interface{}, error) {
		view, err := h.service.Get(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return h.pdf.Render(*view)
	})

	select {
	case <-r.Context().Done():
		httpx.Problem(w, http.StatusGatewayTimeout, "Timed Out", "pdf render cancelled")
		return
	case res := <-resultChan:
		if res.Err != nil {
			h.logger.Error("pdf render failed", "id", id, "error", res.Err)
			httpx.RespondError(w, res.Err)
			return
		}
		pdf := res.Val.([]byte)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=quotation-%d.pdf", id))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		_, _ = w.Write(pdf)
	}
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "quotation id must be an integer")
		return 0, false
	}
	return id, true
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &t
}
