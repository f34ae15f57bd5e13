package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Palette cycles through the segment colours.
var Palette = []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948", "#b07aa1", "#ff9da7"}

// LatestWidget keeps the last drawn dataset for clients that poll it.
type LatestWidget struct {
	mu   sync.RWMutex
	last Dataset
}

func NewLatestWidget() *LatestWidget {
	return &LatestWidget{last: Dataset{Labels: []string{}, Values: []float64{}, Kind: KindDoughnut}}
}

func (w *LatestWidget) Draw(_ context.Context, d Dataset) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = Dataset{Labels: slices.Clone(d.Labels), Values: slices.Clone(d.Values), Kind: d.Kind}
	return nil
}

// Latest returns a copy of the last dataset drawn.
func (w *LatestWidget) Latest() Dataset {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Dataset{Labels: slices.Clone(w.last.Labels), Values: slices.Clone(w.last.Values), Kind: w.last.Kind}
}

type (
	chartConfig struct {
		Type    string       `json:"type"`
		Data    chartData    `json:"data"`
		Options chartOptions `json:"options"`
	}
	chartData struct {
		Labels   []string       `json:"labels"`
		Datasets []chartDataset `json:"datasets"`
	}
	chartDataset struct {
		Data            []float64 `json:"data"`
		BackgroundColor []string  `json:"backgroundColor"`
	}
	chartOptions struct {
		Responsive bool `json:"responsive"`
		Animation  bool `json:"animation"`
	}
)

// ConfigJSON encodes the last dataset as a Chart.js configuration object.
func (w *LatestWidget) ConfigJSON() ([]byte, error) {
	d := w.Latest()
	colors := make([]string, len(d.Values))
	for i := range colors {
		colors[i] = Palette[i%len(Palette)]
	}
	cfg := chartConfig{
		Type: d.Kind,
		Data: chartData{
			Labels:   d.Labels,
			Datasets: []chartDataset{{Data: d.Values, BackgroundColor: colors}},
		},
		Options: chartOptions{Responsive: true},
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode chart config: %w", err)
	}
	return b, nil
}

// TextWidget draws horizontal bars scaled to the largest value.
type TextWidget struct {
	out   io.Writer
	width int
}

func NewTextWidget(out io.Writer, width int) *TextWidget {
	if width <= 0 {
		width = 30
	}
	return &TextWidget{out: out, width: width}
}

func (w *TextWidget) Draw(_ context.Context, d Dataset) error {
	_, err := io.WriteString(w.out, w.Bars(d))
	return err
}

// Bars lays out d, one line per label.
func (w *TextWidget) Bars(d Dataset) string {
	if len(d.Labels) == 0 {
		return ""
	}
	labelWidth, maxValue := 0, 0.0
	for i, l := range d.Labels {
		labelWidth = max(labelWidth, len(l))
		maxValue = max(maxValue, d.Values[i])
	}

	var b strings.Builder
	for i, l := range d.Labels {
		n := 0
		if maxValue > 0 {
			n = int(d.Values[i] / maxValue * float64(w.width))
		}
		if n == 0 && d.Values[i] > 0 {
			n = 1
		}
		fmt.Fprintf(&b, "%-*s %s %.2f\n", labelWidth, l, strings.Repeat("█", n), d.Values[i])
	}
	return b.String()
}
