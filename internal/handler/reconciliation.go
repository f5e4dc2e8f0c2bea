package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/kharon-pay/whatsapp-bot/internal/auth"
	"github.com/kharon-pay/whatsapp-bot/internal/domain"
	"github.com/kharon-pay/whatsapp-bot/internal/logging"
)

const (
	defaultUnresolvedLimit = 50
	maxUnresolvedLimit     = 500
)

type reconciliationJobs interface {
	References() []string
	Cancel(reference string) bool
}

type reconciliationAudit interface {
	ListUnresolved(ctx context.Context, limit int) ([]domain.ReconciliationOutcome, error)
	GetByReference(ctx context.Context, reference string) (*domain.ReconciliationOutcome, error)
}

// ReconciliationHandler is the operator view of withdrawal reconciliation.
type ReconciliationHandler struct {
	jobs  reconciliationJobs
	audit reconciliationAudit
}

// NewReconciliationHandler takes a nil audit when no database is configured.
func NewReconciliationHandler(jobs reconciliationJobs, audit reconciliationAudit) *ReconciliationHandler {
	return &ReconciliationHandler{jobs: jobs, audit: audit}
}

type outcomeResponse struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	Phone       string `json:"phone"`
	Result      string `json:"result"`
	Attempts    int    `json:"attempts"`
	Detail      string `json:"detail,omitempty"`
	InitiatedAt string `json:"initiated_at"`
	FinishedAt  string `json:"finished_at"`
}

func toOutcomeResponse(o domain.ReconciliationOutcome) outcomeResponse {
	return outcomeResponse{
		ID:          o.ID.String(),
		Reference:   o.Reference,
		Phone:       logging.MaskPhone(o.Phone),
		Result:      string(o.Result),
		Attempts:    o.Attempts,
		Detail:      o.Detail,
		InitiatedAt: o.InitiatedAt.UTC().Format(time.RFC3339),
		FinishedAt:  o.FinishedAt.UTC().Format(time.RFC3339),
	}
}

func (h *ReconciliationHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	RespondSuccess(w, http.StatusOK, map[string]any{
		"references": h.jobs.References(),
	})
}

func (h *ReconciliationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")
	if ref == "" {
		RespondValidationError(w, []FieldError{{Field: "reference", Message: "required"}})
		return
	}

	if !h.jobs.Cancel(ref) {
		RespondAppError(w, ErrResourceNotFound, nil)
		return
	}

	operator, _ := auth.OperatorFromContext(r.Context())
	logging.FromContext(r.Context()).Warn("reconciliation cancelled by operator", "reference", ref, "operator", operator)
	RespondSuccess(w, http.StatusOK, map[string]string{"reference": ref, "status": "cancelling"})
}

func (h *ReconciliationHandler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		RespondAppError(w, ErrAuditDisabled, nil)
		return
	}

	limit := defaultUnresolvedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxUnresolvedLimit {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be between 1 and 500"}})
			return
		}
		limit = n
	}

	outcomes, err := h.audit.ListUnresolved(r.Context(), limit)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list unresolved reconciliations", "error", err)
		RespondDomainError(w, err)
		return
	}

	resp := make([]outcomeResponse, 0, len(outcomes))
	for _, o := range outcomes {
		resp = append(resp, toOutcomeResponse(o))
	}
	RespondSuccess(w, http.StatusOK, resp)
}

func (h *ReconciliationHandler) GetOutcome(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		RespondAppError(w, ErrAuditDisabled, nil)
		return
	}

	o, err := h.audit.GetByReference(r.Context(), r.PathValue("reference"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toOutcomeResponse(*o))
}
