// Package present turns ledger views into something a person can read:
// HTML fragments for the web front-end and styled text for the terminal.
package present

import (
	"finx/internal/core"
	"finx/internal/ledger"
)

// EmptyMessage is shown when the filtered list has no rows.
const EmptyMessage = "No transactions yet."

// RowView is a display-ready transaction.
type RowView struct {
	ID          string
	Date        string
	Kind        string
	Category    string
	Description string
	// Amount carries the sign: "+$100.00" for income, "-$40.00" for expense.
	Amount string
}

// SummaryView holds the formatted totals.
type SummaryView struct {
	Balance  string
	Income   string
	Expense  string
	Negative bool
}

// Page is the data handed to templates.
type Page struct {
	Revision int64
	Filter   string
	Filters  []string
	Rows     []RowView
	Summary  SummaryView
	Empty    bool
	Message  string
	// HasTransactions is false only when the whole ledger is empty,
	// whatever the filter.
	HasTransactions bool
}

// SignedAmount formats t's contribution to the balance with the sign in
// front of the "$".
func SignedAmount(t core.Transaction) string {
	m := t.Signed()
	if m.Cents < 0 {
		return "-" + core.Money{Cents: -m.Cents}.String()
	}
	return "+" + m.String()
}

// BuildRows formats the filtered rows of v in display order.
func BuildRows(v ledger.View) []RowView {
	rows := make([]RowView, 0, len(v.Rows))
	for _, t := range v.Rows {
		rows = append(rows, RowView{
			ID:          t.ID,
			Date:        t.Date.String(),
			Kind:        t.Kind.String(),
			Category:    t.Category,
			Description: t.Description,
			Amount:      SignedAmount(t),
		})
	}
	return rows
}

// BuildSummary formats the totals of v.
func BuildSummary(v ledger.View) SummaryView {
	return SummaryView{
		Balance:  v.Summary.Balance.String(),
		Income:   v.Summary.Income.String(),
		Expense:  v.Summary.Expense.String(),
		Negative: v.Summary.Balance.Cents < 0,
	}
}

// BuildPage assembles template data for v.
func BuildPage(v ledger.View) Page {
	return Page{
		Revision: v.Revision,
		Filter:   v.Mode.String(),
		Filters:  []string{core.FilterAll.String(), core.FilterIncome.String(), core.FilterExpense.String()},
		Rows:     BuildRows(v),
		Summary:  BuildSummary(v),
		Empty:    v.Empty(),
		Message:  EmptyMessage,

		HasTransactions: v.Total > 0,
	}
}
