package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler exposes the ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	idem    *shared.IdempotencyStore
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idem: idem}
}

// MountRoutes registers ledger routes. Mounted once per account kind via
// the {kind} URL segment, so customers and suppliers share one surface.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{kind}", func(r chi.Router) {
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Post("/reallocate", h.reallocate)
			r.Get("/statement", h.statement)
			r.Get("/statement.csv", h.statementCSV)
			r.Get("/opening-balance", h.openingBalance)
			r.Get("/summary", h.summary)
			r.Get("/aging", h.aging)
			r.Get("/allocations", h.listAllocations)
		})

		r.Post("/invoices", h.recordDebt)
		r.Get("/invoices/{id}", h.getDebt)
		r.Patch("/invoices/{id}", h.updateDebt)
		r.Post("/invoices/{id}/void", h.voidDebt)
		r.Post("/invoices/{id}/unvoid", h.unvoidDebt)
		r.Delete("/invoices/{id}", h.deleteDebt)

		r.Post("/payments", h.recordCredit)
		r.Get("/payments/{id}", h.getCredit)
		r.Patch("/payments/{id}", h.updateCredit)
		r.Post("/payments/{id}/void", h.voidCredit)
		r.Post("/payments/{id}/unvoid", h.unvoidCredit)
		r.Delete("/payments/{id}", h.deleteCredit)

		r.Delete("/allocations/{id}", h.deleteAllocation)

		r.Post("/reallocate-all", h.reallocateAll)
	})
}

// kindFromURL maps the URL segment onto an account kind.
func kindFromURL(r *http.Request) (AccountKind, error) {
	switch chi.URLParam(r, "kind") {
	case "customers":
		return KindCustomer, nil
	case "suppliers":
		return KindSupplier, nil
	default:
		return "", ErrUnknownKind
	}
}

func accountRefFromURL(r *http.Request) (AccountRef, error) {
	kind, err := kindFromURL(r)
	if err != nil {
		return AccountRef{}, err
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		return AccountRef{}, fmt.Errorf("%w: invalid account id", ErrNotFound)
	}
	return AccountRef{Kind: kind, AccountID: id}, nil
}

func idFromURL(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", ErrNotFound)
	}
	return id, nil
}

// engineOwnedFields are server-computed; a client naming one in a write
// body is treated as an invalid-state write, not a plain decode error.
var engineOwnedFields = []string{"paid_amount", "status", "unallocated_amount"}

func (h *Handler) decode(r *http.Request, target any) error {
	err := httpx.DecodeJSON(r, target)
	if err == nil {
		return nil
	}
	for _, field := range engineOwnedFields {
		if strings.Contains(err.Error(), `"`+field+`"`) {
			return fmt.Errorf("%w: field %q is maintained by the allocation engine", ErrInvalidState, field)
		}
	}
	return err
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnknownKind), errors.Is(err, errBadQuery):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid State", err.Error())
	case errors.Is(err, ErrConcurrency):
		httpx.Problem(w, http.StatusConflict, "Conflict", "the account is being reallocated, retry")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", "idempotency key already used")
	case errors.As(err, &validationErrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationErrs.Error())
	default:
		h.logger.Error("ledger handler", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// checkIdempotency consumes the Idempotency-Key header when present.
func (h *Handler) checkIdempotency(r *http.Request) error {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idem == nil {
		return nil
	}
	return h.idem.CheckAndInsert(r.Context(), key, "ledger")
}

var errBadQuery = errors.New("bad query parameter")

func queryDate(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadQuery, name)
	}
	return t, nil
}

// --- allocation endpoints ---

func (h *Handler) reallocate(w http.ResponseWriter, r *http.Request) {
	ref, err := accountRefFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.service.Reallocate(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) reallocateAll(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	count, err := h.service.ReallocateAll(r.Context(), kind)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": count})
}

func (h *Handler) listAllocations(w http.ResponseWriter, r *http.Request) {
	ref, err := accountRefFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	allocations, err := h.service.ListAllocations(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"allocations": allocations})
}

func (h *Handler) deleteAllocation(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.service.DeleteAllocation(r.Context(), kind, id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- projection endpoints ---

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	statement, err := h.buildStatement(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func (h *Handler) statementCSV(w http.ResponseWriter, r *http.Request) {
	statement, err := h.buildStatement(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=statement-%s-%d.csv", statement.Account.Kind, statement.Account.AccountID))

	printer := message.NewPrinter(language.English)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "type", "reference", "credit", "debit", "running_balance"})
	_ = cw.Write([]string{statement.From.Format("2006-01-02"), "OPENING", "", "", "", statement.OpeningBalance.String()})
	for _, line := range statement.Lines {
		_ = cw.Write([]string{
			line.Date.Format("2006-01-02"),
			line.Type,
			line.Reference,
			line.CreditAmount.String(),
			line.DebitAmount.String(),
			line.RunningBalance.String(),
		})
	}
	_ = cw.Write([]string{statement.To.Format("2006-01-02"), "CLOSING", "", "", "", groupedAmount(printer, statement.ClosingBalance)})
	cw.Flush()
}

// groupedAmount renders an amount with thousands separators. Grouping is
// applied to the integer cents so the decimal never passes through a
// float.
func groupedAmount(p *message.Printer, amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d", sign, p.Sprintf("%d", cents/100), cents%100)
}

func (h *Handler) buildStatement(r *http.Request) (*Statement, error) {
	ref, err := accountRefFromURL(r)
	if err != nil {
		return nil, err
	}
	from, err := queryDate(r, "from", time.Time{})
	if err != nil {
		return nil, err
	}
	to, err := queryDate(r, "to", time.Now())
	if err != nil {
		return nil, err
	}
	return h.service.GetStatement(r.Context(), ref, from, to)
}

func (h *Handler) openingBalance(w http.ResponseWriter, r *http.Request) {
	ref, err := accountRefFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	asOf, err := queryDate(r, "as_of", time.Now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	balance, err := h.service.GetOpeningBalance(r.Context(), ref, asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"as_of": asOf.Format("2006-01-02"), "opening_balance": balance})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	ref, err := accountRefFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	summary, err := h.service.GetSummary(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	ref, err := accountRefFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	asOf, err := queryDate(r, "as_of", time.Now())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	aging, err := h.service.GetAging(r.Context(), ref, asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, aging)
}

// --- invoice endpoints ---

func (h *Handler) recordDebt(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var input RecordDebtInput
	if err := h.decode(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}
	input.Kind = kind
	if input.CreatedBy == 0 {
		input.CreatedBy = shared.ActorFromContext(r.Context())
	}
	if err := h.checkIdempotency(r); err != nil {
		h.respondError(w, r, err)
		return
	}
	debt, err := h.service.RecordDebt(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, debt)
}

func (h *Handler) getDebt(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	debt, err := h.service.GetDebt(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debt)
}

func (h *Handler) updateDebt(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var input UpdateDebtInput
	if err := h.decode(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}
	debt, err := h.service.UpdateDebt(r.Context(), kind, id, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debt)
}

func (h *Handler) voidDebt(w http.ResponseWriter, r *http.Request) {
	h.setDebtVoided(w, r, true)
}

func (h *Handler) unvoidDebt(w http.ResponseWriter, r *http.Request) {
	h.setDebtVoided(w, r, false)
}

func (h *Handler) setDebtVoided(w http.ResponseWriter, r *http.Request, voided bool) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	debt, err := h.service.SetDebtVoided(r.Context(), kind, id, voided, false)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, debt)
}

func (h *Handler) deleteDebt(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.service.DeleteDebt(r.Context(), kind, id, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- payment endpoints ---

func (h *Handler) recordCredit(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var input RecordCreditInput
	if err := h.decode(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}
	input.Kind = kind
	if input.CreatedBy == 0 {
		input.CreatedBy = shared.ActorFromContext(r.Context())
	}
	if err := h.checkIdempotency(r); err != nil {
		h.respondError(w, r, err)
		return
	}
	credit, err := h.service.RecordCredit(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, credit)
}

func (h *Handler) getCredit(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	credit, err := h.service.GetCredit(r.Context(), kind, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, credit)
}

func (h *Handler) updateCredit(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var input UpdateCreditInput
	if err := h.decode(r, &input); err != nil {
		h.respondError(w, r, err)
		return
	}
	credit, err := h.service.UpdateCredit(r.Context(), kind, id, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, credit)
}

func (h *Handler) voidCredit(w http.ResponseWriter, r *http.Request) {
	h.setCreditVoided(w, r, true)
}

func (h *Handler) unvoidCredit(w http.ResponseWriter, r *http.Request) {
	h.setCreditVoided(w, r, false)
}

func (h *Handler) setCreditVoided(w http.ResponseWriter, r *http.Request, voided bool) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	credit, err := h.service.SetCreditVoided(r.Context(), kind, id, voided, false)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, credit)
}

func (h *Handler) deleteCredit(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	id, err := idFromURL(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.service.DeleteCredit(r.Context(), kind, id, false); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
