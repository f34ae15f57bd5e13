package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"finx/internal/core"
	applog "finx/internal/log"
)

var errDuplicateID = errors.New("duplicate transaction id")

// record is the persisted shape of a transaction.
type record struct {
	ID       recordID    `json:"id"`
	Type     string      `json:"type"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Desc     string      `json:"desc"`
	Date     string      `json:"date"`
}

// recordID accepts both string ids and the numeric timestamp ids written by
// older front-ends.
type recordID string

func (id *recordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = recordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	*id = recordID(n.String())
	return nil
}

// Adapter reads and writes the whole transaction list under one slot key.
type Adapter struct {
	slot   Slot
	key    string
	logger *slog.Logger
}

func NewAdapter(slot Slot, key string, logger *slog.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{slot: slot, key: key, logger: logger.With(applog.FieldComponent, applog.ComponentStorage, "key", key)}
}

// Load returns the persisted list. A missing, unreadable or corrupt payload
// yields an empty list; the cause is only logged.
func (a *Adapter) Load(ctx context.Context) []core.Transaction {
	payload, found, err := a.slot.Get(ctx, a.key)
	if err != nil {
		a.logger.WarnContext(ctx, "Slot read failed, starting empty", "error", err)
		return []core.Transaction{}
	}
	if !found {
		return []core.Transaction{}
	}

	txs, err := Decode(payload)
	if err != nil {
		a.logger.WarnContext(ctx, "Stored ledger is corrupt, starting empty",
			"error", err,
			"payload_bytes", len(payload))
		return []core.Transaction{}
	}
	a.logger.DebugContext(ctx, "Ledger loaded", "count", len(txs))
	return txs
}

// Save overwrites the slot with the full list.
func (a *Adapter) Save(ctx context.Context, txs []core.Transaction) error {
	payload, err := Encode(txs)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := a.slot.Put(ctx, a.key, payload); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	a.logger.DebugContext(ctx, "Ledger saved", "count", len(txs), "payload_bytes", len(payload))
	return nil
}

// Encode serializes transactions as a JSON array of records.
func Encode(txs []core.Transaction) ([]byte, error) {
	recs := make([]record, len(txs))
	for i, t := range txs {
		recs[i] = record{
			ID:       recordID(t.ID),
			Type:     t.Kind.String(),
			Amount:   json.Number(t.Amount.Decimal().StringFixed(2)),
			Category: t.Category,
			Desc:     t.Description,
			Date:     t.Date.String(),
		}
	}
	return json.Marshal(recs)
}

// Decode parses a payload produced by Encode. Any invalid record makes the
// whole payload invalid.
func Decode(payload []byte) ([]core.Transaction, error) {
	var recs []record
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, err
	}

	txs := make([]core.Transaction, 0, len(recs))
	seen := make(map[string]struct{}, len(recs))
	for i, r := range recs {
		t, err := r.transaction()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("record %d: %w: %s", i, errDuplicateID, t.ID)
		}
		seen[t.ID] = struct{}{}
		txs = append(txs, t)
	}
	return txs, nil
}

func (r record) transaction() (core.Transaction, error) {
	kind, err := core.ParseKind(r.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	cents := amount.Shift(2).Round(0).IntPart()
	if cents == 0 && amount.IsPositive() {
		// older payloads stored unrounded floats such as 0.001
		cents = 1
	}
	t := core.Transaction{
		ID:          string(r.ID),
		Kind:        kind,
		Amount:      core.Money{Cents: cents},
		Category:    r.Category,
		Description: r.Desc,
		Date:        date,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
