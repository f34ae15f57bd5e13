package present

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"finx/internal/ledger"
)

// Styles used by the terminal presenter.
type Styles struct {
	Income  lipgloss.Style
	Expense lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Summary lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Income:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff00")),
		Expense: lipgloss.NewStyle().Foreground(lipgloss.Color("#ff0000")),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Italic(true),
		Summary: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2),
	}
}

// Terminal writes a table and summary box to an io.Writer.
type Terminal struct {
	out    io.Writer
	styles Styles
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, styles: DefaultStyles()}
}

func (t *Terminal) Render(_ context.Context, v ledger.View) error {
	_, err := fmt.Fprintln(t.out, t.String(v))
	return err
}

// String lays out v without writing it.
func (t *Terminal) String(v ledger.View) string {
	body := t.styles.Muted.Render(EmptyMessage)
	if !v.Empty() {
		body = t.table(BuildRows(v))
	}
	return lipgloss.JoinVertical(lipgloss.Left, t.summary(BuildSummary(v)), body)
}

const (
	colType   = 1
	colAmount = 4
)

func (t *Terminal) table(rows []RowView) string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "TYPE", "CATEGORY", "DESCRIPTION", "AMOUNT", "ID")
	for _, r := range rows {
		tbl.Row(r.Date, r.Kind, r.Category, r.Description, r.Amount, r.ID)
	}
	tbl.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return t.styles.Header
		}
		s := lipgloss.NewStyle().Padding(0, 1)
		if (col == colType || col == colAmount) && row >= 0 && row < len(rows) {
			if rows[row].Kind == "income" {
				return s.Inherit(t.styles.Income)
			}
			return s.Inherit(t.styles.Expense)
		}
		return s
	})
	return tbl.String()
}

func (t *Terminal) summary(s SummaryView) string {
	balance := t.styles.Income
	if s.Negative {
		balance = t.styles.Expense
	}
	return t.styles.Summary.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		"Balance "+balance.Render(s.Balance),
		"   Income "+t.styles.Income.Render(s.Income),
		"   Expense "+t.styles.Expense.Render(s.Expense),
	))
}
