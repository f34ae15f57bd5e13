// Package ledger holds the transaction list and drives the recompute and
// render pipeline after each mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"finx/internal/core"
	applog "finx/internal/log"
)

// ClearPrompt is the question asked before deleting every transaction.
const ClearPrompt = "Clear all transactions?"

// ErrPersist wraps failures to write the durable copy.
var ErrPersist = errors.New("persist ledger")

// ValidationError reports input rejected by Add. The store is unchanged.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AddRequest carries raw form input for a new transaction.
type AddRequest struct {
	Kind        string
	Amount      string
	Category    string
	Description string
}

// Store is the single source of truth for the transaction list.
type Store struct {
	mu        sync.Mutex
	items     []core.Transaction
	mode      core.FilterMode
	revision  int64
	persister Persister
	renderers []Renderer
	notifier  Notifier
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Store)

// WithRenderer appends a renderer to the pipeline.
func WithRenderer(r Renderer) Option {
	return func(s *Store) {
		if r != nil {
			s.renderers = append(s.renderers, r)
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New loads the persisted list and returns a store showing all records.
// Nothing is rendered until the first Refresh or mutation.
func New(ctx context.Context, p Persister, opts ...Option) *Store {
	s := &Store{
		mode:      core.FilterAll,
		persister: p,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(applog.FieldComponent, applog.ComponentLedger)
	s.items = p.Load(ctx)
	s.logger.InfoContext(ctx, "Ledger ready", applog.FieldCount, len(s.items))
	return s
}

// Add validates input, appends a new transaction, persists and re-renders.
func (s *Store) Add(ctx context.Context, req AddRequest) (core.Transaction, error) {
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: "type", Err: err}
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: "amount", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := core.NewTransaction(kind, amount, req.Category, req.Description, s.now())
	s.items = append(s.items, tx)
	s.revision++

	s.logger.InfoContext(ctx, "Transaction added",
		applog.FieldTxID, tx.ID,
		applog.FieldTxType, tx.Kind,
		applog.FieldAmountCents, tx.Amount.Cents,
		applog.FieldCategory, tx.Category)

	return tx, s.commit(ctx, ChangeEvent{Op: OpAdded, ID: tx.ID, Count: 1})
}

// Remove deletes the transaction with the given id. An unknown id leaves
// the list unchanged and is not an error. Reports whether a record was removed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.items, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		s.logger.DebugContext(ctx, "Remove ignored, id not found", applog.FieldTxID, id)
		return false, s.commit(ctx, ChangeEvent{})
	}

	s.items = slices.Delete(s.items, i, i+1)
	s.revision++
	s.logger.InfoContext(ctx, "Transaction removed", applog.FieldTxID, id)
	return true, s.commit(ctx, ChangeEvent{Op: OpRemoved, ID: id, Count: 1})
}

// Clear deletes every transaction once c confirms. An empty store is left
// alone without asking; a nil Confirmer counts as declined.
func (s *Store) Clear(ctx context.Context, c Confirmer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return false, nil
	}
	if c == nil || !c.Confirm(ctx, ClearPrompt) {
		s.logger.InfoContext(ctx, "Clear declined", applog.FieldCount, len(s.items))
		return false, nil
	}

	n := len(s.items)
	s.items = []core.Transaction{}
	s.revision++
	s.logger.InfoContext(ctx, "Ledger cleared", applog.FieldCount, n)
	return true, s.commit(ctx, ChangeEvent{Op: OpCleared, Count: n})
}

// SetFilter switches the active filter mode and re-renders.
func (s *Store) SetFilter(ctx context.Context, mode core.FilterMode) error {
	if _, err := core.ParseFilterMode(mode.String()); err != nil {
		return &ValidationError{Field: "filter", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.render(ctx)
	return nil
}

// Refresh re-renders the current state without changing it.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render(ctx)
}

// Mode returns the active filter mode.
func (s *Store) Mode() core.FilterMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Len returns the number of stored transactions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Snapshot returns a copy of the list in insertion order.
func (s *Store) Snapshot() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// View builds the derived view for the active filter mode.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildView(s.items, s.mode, s.revision)
}

// ViewFor builds the derived view for mode without changing the active one.
func (s *Store) ViewFor(mode core.FilterMode) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildView(s.items, mode, s.revision)
}

// commit persists the full list, re-renders and publishes ev. It must be
// called with s.mu held, after the in-memory mutation is complete.
func (s *Store) commit(ctx context.Context, ev ChangeEvent) error {
	var persistErr error
	if err := s.persister.Save(ctx, s.items); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger", applog.FieldError, err, applog.FieldCount, len(s.items))
		persistErr = fmt.Errorf("%w: %w", ErrPersist, err)
	}

	s.render(ctx)

	if ev.Op != "" && s.notifier != nil {
		ev.Revision = s.revision
		ev.At = s.now()
		if err := s.notifier.PublishChange(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish change", applog.FieldOperation, ev.Op, applog.FieldError, err)
		}
	}
	return persistErr
}

func (s *Store) render(ctx context.Context) {
	if len(s.renderers) == 0 {
		return
	}
	v := BuildView(s.items, s.mode, s.revision)
	for _, r := range s.renderers {
		if err := r.Render(ctx, v); err != nil {
			s.logger.WarnContext(ctx, "Renderer failed", applog.FieldError, err, applog.FieldRevision, v.Revision)
		}
	}
}
