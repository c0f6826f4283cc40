// Package streams implements the stream matcher (C9): turning the
// contract_changes LISTEN/NOTIFY feed into per-subscriber insert,
// update, delete and unmatch events without re-running every live query
// on every notification.
package streams

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/logger"
)

var notificationsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "autumndb",
	Subsystem: "streams",
	Name:      "notifications_processed_total",
	Help:      "Notifications the stream matcher has dispatched to subscribers, by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(notificationsProcessed)
}

// Matcher fans a single contract_changes stream out to every registered
// Subscriber, applying spec.md §4.9's four-step decision per subscriber:
// previously-seen+delete emits delete outright; previously-seen+update
// re-queries to decide update-vs-unmatch; not-previously-seen runs the
// subscriber's prefilter before falling back to a re-query to decide
// insert; link-contract notifications translate into an update on every
// root the subscriber has recorded under that link id. The link's from/to
// endpoints are not inspected and the subscriber's top-level type is not
// consulted to choose a side.
type Matcher struct {
	retryDelay time.Duration
	log        *slog.Logger
	processed  atomic.Int64

	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscriber
}

// NewMatcher builds an empty subscriber registry.
func NewMatcher(cfg *config.Config, log *slog.Logger) *Matcher {
	return &Matcher{
		retryDelay: cfg.Stream.RetryDelay,
		log:        log.With(logger.Scope("streams.matcher")),
		subs:       make(map[uuid.UUID]*Subscriber),
	}
}

// Register adds a subscriber to the dispatch fan-out.
func (m *Matcher) Register(s *Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[s.ID] = s
}

// Unregister removes a subscriber. Its Events channel is left open for
// the caller to drain and close; any in-flight re-query for it is
// allowed to finish and its result discarded.
func (m *Matcher) Unregister(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
}

// SubscriberCount reports how many streams are currently registered,
// exposed for the health/metrics endpoint.
func (m *Matcher) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// TotalProcessed reports how many notifications this matcher has
// dispatched across every subscriber, exposed for the health/metrics
// endpoint alongside the prometheus counter.
func (m *Matcher) TotalProcessed() int64 {
	return m.processed.Load()
}

func (m *Matcher) snapshot() []*Subscriber {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out
}

// Dispatch runs one notification payload through every live subscriber.
// Fan-out across subscribers is concurrent; a single subscriber's own
// notifications are processed in the order Dispatch is called, matching
// the commit order NOTIFY delivers them in.
func (m *Matcher) Dispatch(ctx context.Context, p Payload) {
	var wg sync.WaitGroup
	for _, s := range m.snapshot() {
		wg.Add(1)
		go func(s *Subscriber) {
			defer wg.Done()
			m.dispatchOne(ctx, s, p)
		}(s)
	}
	wg.Wait()
}

func (m *Matcher) dispatchOne(ctx context.Context, s *Subscriber, p Payload) {
	if p.IsLink() {
		m.dispatchLink(ctx, s, p, true)
		return
	}
	m.matchContract(ctx, s, p.ID, p.ID, p.Type, p)
	notificationsProcessed.WithLabelValues(string(p.Type)).Inc()
	m.processed.Add(1)
}

// matchContract is the core per-root decision. rootID is the id the
// subscriber should index its seen-set under; for an ordinary contract
// notification that's the contract's own id, for a link-driven update
// it's whichever root reached the changed endpoint.
func (m *Matcher) matchContract(ctx context.Context, s *Subscriber, id, rootID uuid.UUID, op Op, p Payload) {
	switch {
	case s.isSeen(id) && op == OpDelete:
		s.evict(id)
		s.emit(EventDelete, id)

	case s.isSeen(id) && op == OpUpdate:
		ok, err := s.Requery(ctx, id)
		if err != nil {
			m.log.Warn("requery failed", slog.Any("error", err), slog.String("contract_id", id.String()))
			s.emitError(err)
			return
		}
		if ok {
			s.markSeen(id, rootID)
			s.emit(EventUpdate, id)
		} else {
			s.evict(id)
			s.emit(EventUnmatch, id)
		}

	case !s.isSeen(id) && op == OpInsert:
		m.matchNewRoot(ctx, s, id, rootID, p)

	case !s.isSeen(id) && op == OpUpdate:
		// Row existed before this subscriber was registered, or a prior
		// update moved it into scope; treat identically to an insert
		// decision.
		m.matchNewRoot(ctx, s, id, rootID, p)
	}
}

func (m *Matcher) matchNewRoot(ctx context.Context, s *Subscriber, id, rootID uuid.UUID, p Payload) {
	if s.Prefilter != nil {
		if matches, decided := s.Prefilter(p); decided {
			if matches {
				s.markSeen(id, rootID)
				s.emit(EventInsert, id)
			}
			return
		}
	}
	ok, err := s.Requery(ctx, id)
	if err != nil {
		m.log.Warn("requery failed", slog.Any("error", err), slog.String("contract_id", id.String()))
		s.emitError(err)
		return
	}
	if ok {
		s.markSeen(id, rootID)
		s.emit(EventInsert, id)
	}
}

// dispatchLink translates a link contract's own insert/update/delete
// into an update candidate on every root rootsOf records for the link
// id, recursing through matchContract for each of them. The notification
// payload carries no from/to data, so neither endpoint is looked up and
// the subscriber's top-level type plays no part. allowRetry guards the one bounded re-attempt
// spec.md requires for the race where this notification fires before
// the corresponding links2 rows are visible to a query.
func (m *Matcher) dispatchLink(ctx context.Context, s *Subscriber, p Payload, allowRetry bool) {
	if s.Schema == nil || !hasLinks(s.Schema) {
		return
	}

	endpoints := s.rootsOf(p.ID)
	if len(endpoints) == 0 {
		// Link just appeared; we don't yet know which roots it touches.
		// A subscriber whose top-level type matches one of the link's
		// endpoints will pick it up on that endpoint's own contract
		// notification and call matchContract directly, so there is
		// nothing further to do here unless retrying for visibility.
		if allowRetry {
			time.AfterFunc(m.retryDelay, func() {
				m.dispatchLink(ctx, s, p, false)
			})
		}
		return
	}

	for _, rootID := range endpoints {
		m.matchContract(ctx, s, rootID, rootID, OpUpdate, p)
	}
	notificationsProcessed.WithLabelValues("link_"+string(p.Type)).Inc()
	m.processed.Add(1)
}

// hasLinks reports whether schema declares the $$links keyword at its
// top level, mirroring the compiler's own detection in compileObject.
func hasLinks(schema *jsonschema.Schema) bool {
	if schema == nil {
		return false
	}
	_, ok := schema.Extra["$$links"]
	return ok
}
