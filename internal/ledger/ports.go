package ledger

import (
	"context"
	"time"

	"finx/internal/core"
)

// Ports for collaborators of the store.
type (
	// Persister owns the durable copy of the list.
	Persister interface {
		Load(ctx context.Context) []core.Transaction
		Save(ctx context.Context, txs []core.Transaction) error
	}

	// Renderer receives the recomputed view after every change.
	// Renderers run while the store is locked and must not call back into it.
	Renderer interface {
		Render(ctx context.Context, v View) error
	}

	// Confirmer answers a blocking yes/no question.
	Confirmer interface {
		Confirm(ctx context.Context, prompt string) bool
	}

	// Notifier publishes change events to interested parties.
	Notifier interface {
		PublishChange(ctx context.Context, ev ChangeEvent) error
	}
)

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, v View) error

func (f RendererFunc) Render(ctx context.Context, v View) error { return f(ctx, v) }

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Always answers every confirmation with a fixed value.
type Always bool

func (a Always) Confirm(context.Context, string) bool { return bool(a) }

const (
	OpAdded   = "added"
	OpRemoved = "removed"
	OpCleared = "cleared"
)

// ChangeEvent describes a completed mutation.
type ChangeEvent struct {
	Op       string    `json:"op"`
	ID       string    `json:"id,omitempty"`
	Count    int       `json:"count"`
	Revision int64     `json:"revision"`
	At       time.Time `json:"at"`
}
