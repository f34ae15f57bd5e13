// Package chart projects the per-category totals of a ledger view into a
// doughnut dataset and hands it to a drawing surface.
package chart

import (
	"context"
	"fmt"

	"finx/internal/ledger"
)

// KindDoughnut is the only chart kind drawn.
const KindDoughnut = "doughnut"

// Dataset is one chart's worth of data.
type Dataset struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Kind   string    `json:"kind"`
}

// Widget is a surface that can draw a dataset, replacing what it drew before.
type Widget interface {
	Draw(ctx context.Context, d Dataset) error
}

// Project builds the dataset for v. Categories keep first-seen order and
// sum every amount regardless of its kind.
func Project(v ledger.View) Dataset {
	d := Dataset{
		Labels: make([]string, 0, len(v.Chart)),
		Values: make([]float64, 0, len(v.Chart)),
		Kind:   KindDoughnut,
	}
	for _, c := range v.Chart {
		d.Labels = append(d.Labels, c.Name)
		d.Values = append(d.Values, c.Amount.Float())
	}
	return d
}

// Projector is a ledger.Renderer that redraws its widget on every change.
type Projector struct {
	widget Widget
}

// NewProjector returns a projector drawing onto w. A nil widget means there
// is nowhere to draw and every render is skipped.
func NewProjector(w Widget) *Projector {
	return &Projector{widget: w}
}

func (p *Projector) Render(ctx context.Context, v ledger.View) error {
	if p.widget == nil {
		return nil
	}
	if err := p.widget.Draw(ctx, Project(v)); err != nil {
		return fmt.Errorf("draw chart: %w", err)
	}
	return nil
}
