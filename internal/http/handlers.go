package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"finx/internal/chart"
	"finx/internal/core"
	"finx/internal/ledger"
	applog "finx/internal/log"
)

// transactionJSON is the API shape of a transaction.
type transactionJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func toJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Type:        t.Kind.String(),
		AmountCents: t.Amount.Cents,
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.String(),
	}
}

// viewFor resolves the ?filter= mode of r and builds its view. A bad
// filter writes a 400 and returns false.
func (s *Server) viewFor(w http.ResponseWriter, r *http.Request) (ledger.View, bool) {
	mode, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError("Unknown filter, use all, income or expense").Write(w)
		return ledger.View{}, false
	}
	return s.store.ViewFor(mode), true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.html.Page(&buf, v); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Could not render the ledger").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(buf.String()).Write(w)
}

// handleLedger serves the ledger partial that the page reloads on
// ledger:changed and on filter clicks.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFor(w, r)
	if !ok {
		return
	}
	s.writeFragment(w, r, v, NewHTMXResponse())
}

func (s *Server) writeFragment(w http.ResponseWriter, r *http.Request, v ledger.View, resp *HTMXResponseBuilder) {
	b, err := s.html.Fragment(r.Context(), v)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Ledger fragment failed",
			applog.FieldError, err,
			applog.FieldRevision, v.Revision,
			applog.FieldFilter, v.Mode.String())
		InternalServerError("Could not render the ledger").Write(w)
		return
	}
	resp.Header("Content-Type", "text/html; charset=utf-8").Body(b).Write(w)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse request body failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	tx, err := s.store.Add(r.Context(), p.AddRequest())
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRejected(r.Context(), applog.OpAdd, err)
		msg := validationMessage(verr)
		UnprocessableEntityError(msg).TriggerErrorNotification(msg).Write(w)
		return
	case err != nil:
		// The transaction is in memory and rendered, only the save failed.
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogFailure(r.Context(), "Transaction added but not saved", applog.OpPersist, applog.ErrorTypeStorage, err)
		InternalServerError("Transaction added but could not be saved").
			TriggerLedgerChanged(s.store.View().Revision).
			Write(w)
		return
	}

	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogTransaction(r.Context(), applog.OpAdd, tx.ID, tx.Kind.String(), tx.Amount.Cents, tx.Category)

	rev := s.store.View().Revision
	resp := NewHTMXResponse().TriggerLedgerChanged(rev).TriggerFormReset()
	if p.IsJSON() {
		resp.Status(http.StatusCreated).BodyJSON(toJSON(tx)).Write(w)
		return
	}
	resp.TriggerSuccessNotification("Transaction added").
		BodyHTML(fmt.Sprintf(`<div class="success">Added %s %s (%s)</div>`,
			template.HTMLEscapeString(tx.Kind.String()),
			template.HTMLEscapeString(tx.Amount.String()),
			template.HTMLEscapeString(tx.Category))).
		Write(w)
}

func validationMessage(verr *ledger.ValidationError) string {
	switch verr.Field {
	case "amount":
		return "Enter a positive amount, for example 12.50"
	case "type":
		return "Choose income or expense"
	default:
		return verr.Error()
	}
}

// handleRemove deletes one transaction and answers with the ledger partial
// for the caller's filter. Unknown ids re-render unchanged.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError("Unknown filter, use all, income or expense").Write(w)
		return
	}
	id := sanitizeInput(r.PathValue("id"))
	if id == "" {
		BadRequestError("Missing transaction id").Write(w)
		return
	}

	removed, err := s.store.Remove(r.Context(), id)
	v := s.store.ViewFor(mode)
	resp := NewHTMXResponse()
	if removed {
		resp.TriggerChartChanged(v.Revision)
	}
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogFailure(r.Context(), "Transaction removed but not saved", applog.OpPersist, applog.ErrorTypeStorage, err)
		resp.TriggerErrorNotification("Removed, but the ledger could not be saved")
	}
	s.writeFragment(w, r, v, resp)
}

var errClearNotConfirmed = errors.New("clear not confirmed")

// formConfirmer answers the clear prompt from the submitted form and
// records whether the store asked at all.
type formConfirmer struct {
	confirmed bool
	asked     bool
}

func (c *formConfirmer) Confirm(context.Context, string) bool {
	c.asked = true
	return c.confirmed
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	c := &formConfirmer{confirmed: p.Get("confirm") == "yes"}
	cleared, err := s.store.Clear(r.Context(), c)
	switch {
	case !c.asked:
		NewHTMXResponse().BodyHTML(`<div class="info">Nothing to clear</div>`).Write(w)
		return
	case !cleared:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogRejected(r.Context(), applog.OpClear, errClearNotConfirmed)
		ConflictError("Clear was not confirmed").Write(w)
		return
	case err != nil:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogFailure(r.Context(), "Ledger cleared but not saved", applog.OpPersist, applog.ErrorTypeStorage, err)
		InternalServerError("Cleared, but the ledger could not be saved").
			TriggerLedgerChanged(s.store.View().Revision).
			Write(w)
		return
	}

	NewHTMXResponse().
		TriggerLedgerChanged(s.store.View().Revision).
		TriggerSuccessNotification("All transactions cleared").
		BodyHTML(`<div class="success">All transactions cleared</div>`).
		Write(w)
}

type summaryJSON struct {
	Revision     int64  `json:"revision"`
	Count        int    `json:"count"`
	IncomeCents  int64  `json:"income_cents"`
	ExpenseCents int64  `json:"expense_cents"`
	BalanceCents int64  `json:"balance_cents"`
	Income       string `json:"income"`
	Expense      string `json:"expense"`
	Balance      string `json:"balance"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v := s.store.View()
	sum := v.Summary
	NewHTMXResponse().BodyJSON(summaryJSON{
		Revision:     v.Revision,
		Count:        s.store.Len(),
		IncomeCents:  sum.Income.Cents,
		ExpenseCents: sum.Expense.Cents,
		BalanceCents: sum.Balance.Cents,
		Income:       sum.Income.String(),
		Expense:      sum.Expense.String(),
		Balance:      sum.Balance.String(),
	}).Write(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	widget := s.chart
	if widget == nil {
		widget = chart.NewLatestWidget()
		if err := chart.NewProjector(widget).Render(r.Context(), s.store.View()); err != nil {
			InternalServerError("Could not build chart").Write(w)
			return
		}
	}
	b, err := widget.ConfigJSON()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Chart config failed", applog.FieldError, err)
		InternalServerError("Could not build chart").Write(w)
		return
	}
	NewHTMXResponse().
		Header("Content-Type", "application/json").
		Header("Cache-Control", "no-store").
		Body(b).
		Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports the state of the ledger and its supporting caches.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{
		"templates": "ok",
		"ledger": map[string]any{
			"transactions": s.store.Len(),
			"revision":     s.store.View().Revision,
		},
		"rate_limiter": map[string]any{
			"active_clients": s.limiter.ActiveClients(),
		},
	}
	if s.fragments != nil {
		st := s.fragments.Stats()
		checks["cache"] = map[string]any{
			"entries": st.Size,
			"hits":    st.Hits,
			"misses":  st.Misses,
		}
	}
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	metric := func(name, help, kind string, value string) {
		fmt.Fprintf(&buf, "# HELP %s %s\n# TYPE %s %s\n%s %s\n\n", name, help, name, kind, name, value)
	}
	itoa := func(n int64) string { return strconv.FormatInt(n, 10) }

	v := s.store.View()
	metric("http_requests_total", "Total number of HTTP requests", "counter", itoa(s.tracer.Requests()))
	metric("ledger_transactions", "Transactions currently stored", "gauge", itoa(int64(s.store.Len())))
	metric("ledger_revision", "Ledger revision", "counter", itoa(v.Revision))
	metric("ledger_balance_cents", "Current balance in cents", "gauge", itoa(v.Summary.Balance.Cents))
	if s.fragments != nil {
		st := s.fragments.Stats()
		metric("cache_hits_total", "Total fragment cache hits", "counter", itoa(st.Hits))
		metric("cache_misses_total", "Total fragment cache misses", "counter", itoa(st.Misses))
		metric("cache_entries", "Current fragment cache entries", "gauge", itoa(int64(st.Size)))
	}
	metric("rate_limit_hits_total", "Total rate limit hits", "counter", itoa(s.limiter.Hits()))
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", itoa(s.detector.Suspicious()))
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", itoa(int64(s.limiter.ActiveClients())))
	metric("uptime_seconds", "Application uptime in seconds", "gauge", strconv.FormatFloat(time.Since(s.started).Seconds(), 'f', 0, 64))

	NewHTMXResponse().
		Header("Content-Type", "text/plain; charset=utf-8").
		Body(buf.Bytes()).
		Write(w)
}
