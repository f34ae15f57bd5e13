package core

import (
	"errors"
	"slices"
	"strings"
)

const (
	FilterAll     FilterMode = "all"
	FilterIncome  FilterMode = "income"
	FilterExpense FilterMode = "expense"
)

// FilterMode selects which transactions are shown.
type FilterMode string

var ErrInvalidFilter = errors.New("invalid filter mode")

// Summary holds the totals shown above the ledger table.
type Summary struct {
	Income  Money
	Expense Money
	Balance Money
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summarize totals the full list. It ignores any active filter.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Kind {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expense = s.Expense.Add(t.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	return s
}

// ParseFilterMode maps a filter token to a mode. Empty means all.
func ParseFilterMode(s string) (FilterMode, error) {
	switch m := FilterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return FilterAll, nil
	case FilterAll, FilterIncome, FilterExpense:
		return m, nil
	default:
		return "", ErrInvalidFilter
	}
}

func (m FilterMode) String() string {
	return string(m)
}

// Matches reports whether t belongs to the view selected by m.
func (m FilterMode) Matches(t Transaction) bool {
	switch m {
	case FilterIncome:
		return t.Kind == Income
	case FilterExpense:
		return t.Kind == Expense
	default:
		return true
	}
}

// Apply returns the matching subsequence in its original order.
// The input slice is not modified.
func (m FilterMode) Apply(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if m.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortByDateDesc returns a copy ordered newest first. Equal dates keep
// their relative order.
func SortByDateDesc(txs []Transaction) []Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}

// GroupByCategory sums amounts per category in first-seen order.
//
// Income and expense amounts in the same category are added together,
// not netted.
func GroupByCategory(txs []Transaction) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, t := range txs {
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	return out
}
