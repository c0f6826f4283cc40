package streams

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Op is the operation a contract_changes notification reports.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Payload is the NOTIFY body the contract_notify trigger emits (see
// migrations/00001_init_schema.sql): {id, slug, cardType, type}. cardType
// is the contract's own type column, letting the matcher tell ordinary
// contract changes apart from link contract changes (cardType prefixed
// "link@...") without a second round trip.
type Payload struct {
	ID       uuid.UUID `json:"id"`
	Slug     string    `json:"slug"`
	CardType string    `json:"cardType"`
	Type     Op        `json:"type"`
}

// IsLink reports whether this payload describes a change to a link
// contract, per spec.md §3/§4.9's "cardType is link@..." test.
func (p Payload) IsLink() bool {
	return len(p.CardType) >= 5 && p.CardType[:5] == "link@"
}

func parsePayload(raw string) (Payload, error) {
	var p Payload
	err := json.Unmarshal([]byte(raw), &p)
	return p, err
}
