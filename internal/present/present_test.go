package present

import (
	"bytes"
	"context"
	"errors"
	"html"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"finx/internal/cache"
	"finx/internal/core"
	"finx/internal/ledger"
	"finx/web"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleView(mode core.FilterMode) ledger.View {
	txs := []core.Transaction{
		{ID: "a1", Kind: core.Income, Amount: core.Money{Cents: 10000}, Category: "Salary", Description: "May", Date: core.NewDate(2025, 5, 1)},
		{ID: "b2", Kind: core.Expense, Amount: core.Money{Cents: 4000}, Category: "Food", Description: "<b>Lunch</b>", Date: core.NewDate(2025, 5, 2)},
	}
	return ledger.BuildView(txs, mode, 7)
}

func TestSignedAmount(t *testing.T) {
	tests := []struct {
		kind core.Kind
		want string
	}{
		{core.Income, "+$100.00"},
		{core.Expense, "-$100.00"},
	}
	for _, tt := range tests {
		got := SignedAmount(core.Transaction{Kind: tt.kind, Amount: core.Money{Cents: 10000}})
		if got != tt.want {
			t.Errorf("SignedAmount(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestBuildPage(t *testing.T) {
	p := BuildPage(sampleView(core.FilterAll))
	if len(p.Rows) != 2 || p.Rows[0].ID != "b2" {
		t.Fatalf("expected newest first, got %+v", p.Rows)
	}
	if p.Summary.Balance != "$60.00" || p.Summary.Income != "$100.00" || p.Summary.Expense != "$40.00" {
		t.Fatalf("unexpected summary %+v", p.Summary)
	}
	if p.Rows[0].Kind != "expense" || p.Rows[1].Amount != "+$100.00" || p.Rows[0].Amount != "-$40.00" {
		t.Fatalf("unexpected rows %+v", p.Rows)
	}
	if p.Empty || !p.HasTransactions || p.Filter != "all" || len(p.Filters) != 3 {
		t.Fatalf("unexpected page %+v", p)
	}

	neg := ledger.BuildView([]core.Transaction{{ID: "x", Kind: core.Expense, Amount: core.Money{Cents: 500}}}, core.FilterAll, 1)
	if s := BuildSummary(neg); !s.Negative || s.Balance != "$-5.00" {
		t.Fatalf("expected negative balance, got %+v", s)
	}
}

// text undoes entity escaping; html/template writes "+" as "&#43;".
func text(b []byte) string {
	return html.UnescapeString(string(b))
}

func newHTML(t *testing.T, c cache.Cache[[]byte]) *HTML {
	t.Helper()
	h, err := NewHTML(web.TemplatesFS, c, quietLogger())
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}
	return h
}

func TestHTMLFragment(t *testing.T) {
	h := newHTML(t, nil)
	b, err := h.Fragment(context.Background(), sampleView(core.FilterAll))
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	out := string(b)
	for _, want := range []string{`id="ledger"`, `data-id="a1"`, "&lt;b&gt;Lunch&lt;/b&gt;",
		`<span class="badge badge-income">income</span>`, `<span class="badge badge-expense">expense</span>`,
		`hx-confirm="Clear all transactions?"`} {
		if !strings.Contains(out, want) {
			t.Errorf("fragment missing %q", want)
		}
	}
	for _, want := range []string{"+$100.00", "-$40.00", "$60.00"} {
		if !strings.Contains(text(b), want) {
			t.Errorf("fragment missing %q", want)
		}
	}
	if strings.Contains(out, `id="empty-state"`) {
		t.Error("non-empty view must not show the empty state")
	}
}

func TestHTMLFragmentEmptyState(t *testing.T) {
	h := newHTML(t, nil)
	v := sampleView(core.FilterAll)
	v.Rows = nil
	b, err := h.Fragment(context.Background(), v)
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `id="empty-state"`) || !strings.Contains(out, EmptyMessage) {
		t.Fatalf("expected empty state, got %s", out)
	}
	if strings.Contains(out, "<table") {
		t.Fatal("empty state must not render a table")
	}
	// totals still cover the full list
	if !strings.Contains(out, "$60.00") {
		t.Fatal("summary missing from empty view")
	}
	// an empty filter result is not an empty ledger
	if !strings.Contains(out, "hx-confirm") {
		t.Fatal("clear must still ask while other rows exist")
	}
}

func TestHTMLFragmentEmptyLedgerDoesNotAskToClear(t *testing.T) {
	h := newHTML(t, nil)
	b, err := h.Fragment(context.Background(), ledger.BuildView(nil, core.FilterAll, 0))
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	out := string(b)
	if strings.Contains(out, "hx-confirm") || strings.Contains(out, "hx-post=\"/transactions/clear\"") {
		t.Fatalf("empty ledger must not prompt to clear: %s", out)
	}
	if !strings.Contains(out, `id="clear" disabled`) {
		t.Fatalf("expected disabled clear button: %s", out)
	}
}

func TestHTMLFragmentNegativeBalance(t *testing.T) {
	h := newHTML(t, nil)
	v := ledger.BuildView([]core.Transaction{
		{ID: "x", Kind: core.Expense, Amount: core.Money{Cents: 300}, Category: "Food", Description: "-", Date: core.NewDate(2025, 5, 3)},
	}, core.FilterAll, 1)
	b, err := h.Fragment(context.Background(), v)
	if err != nil {
		t.Fatalf("fragment: %v", err)
	}
	if !strings.Contains(text(b), `<span id="balance" class="value negative">$-3.00</span>`) {
		t.Fatalf("balance slot not negative: %s", text(b))
	}
}

func TestHTMLFragmentCache(t *testing.T) {
	c := cache.NewLRUCache[[]byte](10, time.Minute)
	h := newHTML(t, c)
	v := sampleView(core.FilterIncome)

	if err := h.Render(context.Background(), v); err != nil {
		t.Fatalf("render: %v", err)
	}
	cached, ok := c.Get(CacheKey(v))
	if !ok {
		t.Fatalf("expected fragment cached under %q", CacheKey(v))
	}
	b, err := h.Fragment(context.Background(), v)
	if err != nil || !bytes.Equal(b, cached) {
		t.Fatalf("expected cached fragment, err=%v", err)
	}
	if CacheKey(v) != "7:income" {
		t.Fatalf("unexpected key %q", CacheKey(v))
	}
}

func TestHTMLPage(t *testing.T) {
	h := newHTML(t, nil)
	var buf bytes.Buffer
	if err := h.Page(&buf, sampleView(core.FilterAll)); err != nil {
		t.Fatalf("page: %v", err)
	}
	for _, want := range []string{"<form", `hx-confirm="Clear all transactions?"`, `id="category-chart"`, "+$100.00", ">income</span>"} {
		if !strings.Contains(text(buf.Bytes()), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestNewHTMLMissingTemplate(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/index.html": {Data: []byte(`<html></html>`)},
	}
	_, err := NewHTML(fsys, nil, quietLogger())
	if !errors.Is(err, ErrTemplatesMissing) {
		t.Fatalf("expected ErrTemplatesMissing, got %v", err)
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	if err := term.Render(context.Background(), sampleView(core.FilterAll)); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"TYPE", "income", "expense", "+$100.00", "-$40.00", "$60.00", "Salary", "Food"} {
		if !strings.Contains(out, want) {
			t.Errorf("terminal output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	empty := sampleView(core.FilterAll)
	empty.Rows = nil
	if err := term.Render(context.Background(), empty); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), EmptyMessage) {
		t.Fatalf("expected empty message, got:\n%s", buf.String())
	}
}
