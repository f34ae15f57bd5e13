package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finx/internal/ledger"
)

// ChangeMessage is published after every ledger mutation. Consumers re-read
// the ledger if they need more than the counts carried here.
type ChangeMessage struct {
	Op       string    `json:"op"`
	ID       string    `json:"id,omitempty"`
	Count    int       `json:"count"`
	Revision int64     `json:"revision"`
	At       time.Time `json:"at"`
}

// NewChangeMessage copies ev, stamping the current time when ev has none.
func NewChangeMessage(ev ledger.ChangeEvent) *ChangeMessage {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return &ChangeMessage{Op: ev.Op, ID: ev.ID, Count: ev.Count, Revision: ev.Revision, At: at}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and rejects unknown operations.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Op {
	case ledger.OpAdded, ledger.OpRemoved, ledger.OpCleared:
	default:
		return nil, fmt.Errorf("unknown change op %q", msg.Op)
	}
	return &msg, nil
}
