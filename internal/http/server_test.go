package http

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finx/internal/cache"
	"finx/internal/chart"
	"finx/internal/ledger"
	"finx/internal/present"
	"finx/internal/storage"
	"finx/web"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	srv   *Server
	store *ledger.Store
}

func newTestServer(t *testing.T, ratePerMinute int) *testServer {
	t.Helper()
	logger := quietLogger()
	fragments := cache.NewLRUCache[[]byte](32, time.Minute)
	html, err := present.NewHTML(web.TemplatesFS, fragments, logger)
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}
	widget := chart.NewLatestWidget()
	store := ledger.New(context.Background(),
		storage.NewAdapter(storage.NewMemorySlot(), storage.DefaultKey, logger),
		ledger.WithRenderer(html),
		ledger.WithRenderer(chart.NewProjector(widget)),
		ledger.WithLogger(logger))
	store.Refresh(context.Background())

	srv, err := NewServer(":0", Deps{
		Store:              store,
		HTML:               html,
		Chart:              widget,
		Fragments:          fragments,
		Logger:             logger,
		RateLimitPerMinute: ratePerMinute,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(method, target, body, contentType string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) postForm(target, body string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, target, body, "application/x-www-form-urlencoded")
}

// decoded returns the response with entities decoded; html/template writes
// "+" as "&#43;".
func decoded(rr *httptest.ResponseRecorder) string {
	return html.UnescapeString(rr.Body.String())
}

func TestNewServerRequiresDeps(t *testing.T) {
	if _, err := NewServer(":0", Deps{}); !errors.Is(err, ErrMissingDeps) {
		t.Fatalf("expected ErrMissingDeps, got %v", err)
	}
}

func TestIndexShowsEmptyLedger(t *testing.T) {
	ts := newTestServer(t, 0)
	rr := ts.do(http.MethodGet, "/", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`id="ledger"`, present.EmptyMessage, "<form", `id="category-chart"`} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("request id header not set")
	}
	// nothing to clear, so nothing to confirm
	if strings.Contains(body, "hx-confirm") {
		t.Error("empty ledger page must not prompt to clear")
	}
}

func TestIndexAsksBeforeClearingNonEmptyLedger(t *testing.T) {
	ts := newTestServer(t, 0)
	_, _ = ts.store.Add(context.Background(), ledger.AddRequest{Kind: "income", Amount: "1"})

	for _, target := range []string{"/", "/ui/ledger?filter=expense"} {
		rr := ts.do(http.MethodGet, target, "", "")
		if !strings.Contains(rr.Body.String(), `hx-confirm="Clear all transactions?"`) {
			t.Errorf("%s: clear button must confirm", target)
		}
	}
}

func TestLedgerRowsShowKindAndNegativeBalance(t *testing.T) {
	ts := newTestServer(t, 0)
	ctx := context.Background()
	_, _ = ts.store.Add(ctx, ledger.AddRequest{Kind: "income", Amount: "10", Category: "Gift"})
	_, _ = ts.store.Add(ctx, ledger.AddRequest{Kind: "expense", Amount: "13", Category: "Food"})

	rr := ts.do(http.MethodGet, "/", "", "")
	got := decoded(rr)
	for _, want := range []string{
		`<span class="badge badge-income">income</span>`,
		`<span class="badge badge-expense">expense</span>`,
		`<span id="balance" class="value negative">$-3.00</span>`,
		"+$10.00",
		"-$13.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestAddTransactionForm(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.postForm("/transactions", "type=income&amount=100&category=Salary&desc=May")
	if rr.Code != http.StatusOK {
		t.Fatalf("add status=%d body=%s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{`"ledger:changed"`, `"form:reset"`, `"revision":1`} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}
	if !strings.Contains(rr.Body.String(), "$100.00") {
		t.Errorf("unexpected confirmation %q", rr.Body.String())
	}

	rr = ts.do(http.MethodGet, "/ui/ledger", "", "")
	if rr.Code != http.StatusOK || !strings.Contains(decoded(rr), "+$100.00") {
		t.Fatalf("ledger partial missing new row: %d %s", rr.Code, decoded(rr))
	}
}

func TestAddTransactionRejectsInvalidInput(t *testing.T) {
	ts := newTestServer(t, 0)

	tests := []struct {
		name string
		body string
	}{
		{"non-numeric amount", "type=expense&amount=abc"},
		{"zero amount", "type=expense&amount=0"},
		{"negative amount", "type=expense&amount=-5"},
		{"missing type", "amount=5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.postForm("/transactions", tt.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rr.Code)
			}
			trigger := rr.Header().Get("HX-Trigger")
			if strings.Contains(trigger, "ledger:changed") {
				t.Errorf("rejected input must not trigger a reload: %s", trigger)
			}
			if !strings.Contains(trigger, `"show-notification"`) || !strings.Contains(trigger, `"type":"error"`) {
				t.Errorf("rejected input must notify the user: %s", trigger)
			}
			if !strings.Contains(rr.Body.String(), `class="error"`) {
				t.Errorf("expected error fragment, got %s", rr.Body.String())
			}
		})
	}
	if ts.store.Len() != 0 {
		t.Fatalf("rejected input changed the ledger: %d", ts.store.Len())
	}
}

func TestAddTransactionJSON(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.do(http.MethodPost, "/transactions", `{"type":"expense","amount":"12.5","category":"Food"}`, "application/json")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}
	var got transactionJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID == "" || got.Type != "expense" || got.AmountCents != 1250 || got.Description != "-" {
		t.Fatalf("unexpected transaction %+v", got)
	}
}

func TestRemoveTransaction(t *testing.T) {
	ts := newTestServer(t, 0)
	ctx := context.Background()
	keep, _ := ts.store.Add(ctx, ledger.AddRequest{Kind: "income", Amount: "100", Category: "Salary"})
	drop, _ := ts.store.Add(ctx, ledger.AddRequest{Kind: "expense", Amount: "40", Category: "Food"})

	rr := ts.do(http.MethodDelete, "/transactions/"+drop.ID+"?filter=expense", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, drop.ID) {
		t.Error("removed row still rendered")
	}
	// expense filter hides the remaining income row
	if strings.Contains(body, keep.ID) || !strings.Contains(body, present.EmptyMessage) {
		t.Errorf("fragment not built for the expense filter: %s", body)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"chart:changed"`) {
		t.Errorf("expected chart refresh, got %q", rr.Header().Get("HX-Trigger"))
	}
	if ts.store.Len() != 1 {
		t.Fatalf("expected one transaction left, got %d", ts.store.Len())
	}

	rr = ts.postForm("/transactions/unknown/delete", "")
	if rr.Code != http.StatusOK || rr.Header().Get("HX-Trigger") != "" {
		t.Fatalf("unknown id should re-render quietly, got %d %q", rr.Code, rr.Header().Get("HX-Trigger"))
	}
	if ts.store.Len() != 1 {
		t.Fatal("unknown id changed the ledger")
	}
}

func TestClearTransactions(t *testing.T) {
	ts := newTestServer(t, 0)

	rr := ts.postForm("/transactions/clear", "confirm=yes")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Nothing to clear") {
		t.Fatalf("empty clear: %d %s", rr.Code, rr.Body.String())
	}

	_, _ = ts.store.Add(context.Background(), ledger.AddRequest{Kind: "income", Amount: "5"})

	rr = ts.postForm("/transactions/clear", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("unconfirmed clear: expected 409, got %d", rr.Code)
	}
	if ts.store.Len() != 1 {
		t.Fatal("unconfirmed clear removed transactions")
	}

	rr = ts.postForm("/transactions/clear", "confirm=yes")
	if rr.Code != http.StatusOK {
		t.Fatalf("confirmed clear status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("HX-Trigger"), `"ledger:changed"`) {
		t.Errorf("expected ledger reload, got %q", rr.Header().Get("HX-Trigger"))
	}
	if ts.store.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", ts.store.Len())
	}
}

func TestLedgerFilter(t *testing.T) {
	ts := newTestServer(t, 0)
	ctx := context.Background()
	_, _ = ts.store.Add(ctx, ledger.AddRequest{Kind: "income", Amount: "100", Category: "Salary"})
	_, _ = ts.store.Add(ctx, ledger.AddRequest{Kind: "expense", Amount: "40", Category: "Food"})

	rr := ts.do(http.MethodGet, "/ui/ledger?filter=income", "", "")
	got := decoded(rr)
	if !strings.Contains(got, "+$100.00") || strings.Contains(got, "-$40.00") {
		t.Fatalf("income filter leaked rows: %s", got)
	}
	// totals cover the full list
	if !strings.Contains(got, "$60.00") {
		t.Error("summary should ignore the filter")
	}

	rr = ts.do(http.MethodGet, "/ui/ledger?filter=savings", "", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown filter, got %d", rr.Code)
	}
}

func TestSummaryAndChartAPI(t *testing.T) {
	ts := newTestServer(t, 0)
	ctx := context.Background()
	_, _ = ts.store.Add(ctx, ledger.AddRequest{Kind: "income", Amount: "100", Category: "Salary"})
	_, _ = ts.store.Add(ctx, ledger.AddRequest{Kind: "expense", Amount: "40", Category: "Food"})

	rr := ts.do(http.MethodGet, "/api/summary", "", "")
	var sum summaryJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Count != 2 || sum.BalanceCents != 6000 || sum.IncomeCents != 10000 || sum.ExpenseCents != 4000 || sum.Balance != "$60.00" {
		t.Fatalf("unexpected summary %+v", sum)
	}

	rr = ts.do(http.MethodGet, "/api/chart", "", "")
	var cfg struct {
		Type string `json:"type"`
		Data struct {
			Labels []string `json:"labels"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	if cfg.Type != chart.KindDoughnut || strings.Join(cfg.Data.Labels, ",") != "Salary,Food" {
		t.Fatalf("unexpected chart %+v", cfg)
	}
}

func TestProbesAndMetrics(t *testing.T) {
	ts := newTestServer(t, 0)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := ts.do(http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
	rr := ts.do(http.MethodGet, "/metrics", "", "")
	for _, want := range []string{"ledger_transactions 0", "http_requests_total", "cache_entries"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	ts := newTestServer(t, 0)
	rr := ts.do(http.MethodGet, "/static/app.js", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Cache-Control"), "public") {
		t.Errorf("unexpected Cache-Control %q", rr.Header().Get("Cache-Control"))
	}
}

func TestSuspiciousMethodRefused(t *testing.T) {
	ts := newTestServer(t, 0)
	rr := ts.do("TRACE", "/", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if ts.srv.detector.Suspicious() != 1 {
		t.Fatalf("expected one suspicious request, got %d", ts.srv.detector.Suspicious())
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		if rr := ts.postForm("/transactions", "type=expense&amount=1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status=%d", i, rr.Code)
		}
	}
	rr := ts.postForm("/transactions", "type=expense&amount=1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	// reads are never limited
	if rr := ts.do(http.MethodGet, "/ui/ledger", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("GET limited: %d", rr.Code)
	}
}
