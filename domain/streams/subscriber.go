package streams

import (
	"context"
	"sync"

	jsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/google/uuid"
)

// EventKind classifies what happened to a contract from one subscriber's
// point of view. Unmatch is distinct from delete: the row can still
// exist, it simply stopped satisfying the subscriber's schema.
type EventKind string

const (
	EventInsert  EventKind = "insert"
	EventUpdate  EventKind = "update"
	EventDelete  EventKind = "delete"
	EventUnmatch EventKind = "unmatch"
)

// Event is what a subscriber receives on its channel.
type Event struct {
	Kind       EventKind
	ContractID uuid.UUID
}

// Requery re-runs a subscriber's compiled query restricted to a single
// contract id, reporting whether that row currently satisfies it. The
// matcher itself never executes SQL — compiling and running queries is
// the caller's responsibility (pkg/schema/compiler + linkexpand produce
// the SQL text; whatever wires a *bun.DB to it supplies this callback).
type Requery func(ctx context.Context, id uuid.UUID) (bool, error)

// Prefilter short-circuits the requery round trip for inserts whose
// schema pins down constant top-level fields (id, slug, or type) that
// the notification payload already carries. Returning (matches, true)
// answers the question outright; (false, false) means "cannot decide
// from the payload alone, Requery must run."
type Prefilter func(p Payload) (matches bool, decided bool)

// Subscriber tracks one live query's match set against the notification
// stream. contractID -> set of root ids lets a link event update every
// root that reaches the changed link through $links, and lets unmatching
// one root evict only the contracts that were reachable solely through it.
type Subscriber struct {
	ID        uuid.UUID
	Schema    *jsonschema.Schema
	TopType   string
	Prefilter Prefilter
	Requery   Requery
	Events    chan Event

	// Errors carries Requery failures without ever closing Events or
	// removing the subscriber from the matcher's registry — a stream
	// error never terminates the subscriber, it is reported here and
	// matching resumes with the next notification.
	Errors chan error

	mu   sync.Mutex
	seen map[uuid.UUID]map[uuid.UUID]bool
}

// NewSubscriber builds a Subscriber for a compiled schema. topType is the
// schema's top-level "properties.type.const" value when pinned; it is
// stored on the Subscriber and the matcher does not read it. It may be
// empty if the schema doesn't constrain type.
func NewSubscriber(schema *jsonschema.Schema, topType string, prefilter Prefilter, requery Requery, bufferSize int) *Subscriber {
	return &Subscriber{
		ID:        uuid.New(),
		Schema:    schema,
		TopType:   topType,
		Prefilter: prefilter,
		Requery:   requery,
		Events:    make(chan Event, bufferSize),
		Errors:    make(chan error, bufferSize),
		seen:      make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

func (s *Subscriber) emit(kind EventKind, id uuid.UUID) {
	select {
	case s.Events <- Event{Kind: kind, ContractID: id}:
	default:
		// Buffer full: drop rather than block the shared dispatch
		// goroutine. A slow consumer falls behind its own stream, not
		// everyone else's.
	}
}

func (s *Subscriber) emitError(err error) {
	select {
	case s.Errors <- err:
	default:
	}
}

func (s *Subscriber) isSeen(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

func (s *Subscriber) markSeen(id, rootID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots, ok := s.seen[id]
	if !ok {
		roots = make(map[uuid.UUID]bool)
		s.seen[id] = roots
	}
	roots[rootID] = true
}

func (s *Subscriber) evict(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
}

// rootsOf returns the root ids id was reached through, for link-event
// fan-out bookkeeping.
func (s *Subscriber) rootsOf(id uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := s.seen[id]
	out := make([]uuid.UUID, 0, len(roots))
	for r := range roots {
		out = append(out, r)
	}
	return out
}
