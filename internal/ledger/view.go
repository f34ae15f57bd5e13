package ledger

import "finx/internal/core"

// View is everything a front-end needs to draw the ledger.
type View struct {
	Revision int64
	Mode     core.FilterMode
	// Rows is the filtered list, newest first.
	Rows []core.Transaction
	// Summary and Chart always cover the full list.
	Summary core.Summary
	Chart   []core.CategoryAmount
	// Total counts the full list.
	Total int
}

// Empty reports whether the filtered list has no rows.
func (v View) Empty() bool {
	return len(v.Rows) == 0
}

// BuildView runs the aggregate, filter, sort and chart projections.
func BuildView(txs []core.Transaction, mode core.FilterMode, revision int64) View {
	return View{
		Revision: revision,
		Mode:     mode,
		Rows:     core.SortByDateDesc(mode.Apply(txs)),
		Summary:  core.Summarize(txs),
		Chart:    core.GroupByCategory(txs),
		Total:    len(txs),
	}
}
