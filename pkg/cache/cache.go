// Package cache implements a small read-through LRU in front of
// domain/contracts.Store.GetByID, with a robfig/cron sweep that evicts
// entries past their TTL. It is a collaborator (spec.md scopes caching
// out of the compiler core itself) rather than a general-purpose cache.
package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/pkg/logger"
)

// Config bounds the cache's size and entry lifetime.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

type entry struct {
	id        uuid.UUID
	contract  *contracts.Contract
	expiresAt time.Time
}

// Cache wraps a contracts.Store with an LRU of bounded size, evicted
// both on capacity pressure (Get) and on a schedule (the cron sweep).
type Cache struct {
	store contracts.Store
	log   *slog.Logger

	maxEntries int
	ttl        time.Duration

	mu    sync.Mutex
	items map[uuid.UUID]*list.Element
	order *list.List

	cron *cron.Cron
}

// New builds a Cache fronting store. If cfg.MaxEntries or cfg.TTL are
// zero, defaults of 10000 entries and a 1 minute TTL apply.
func New(store contracts.Store, cfg Config, log *slog.Logger) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	return &Cache{
		store:      store,
		log:        log.With(logger.Scope("cache")),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		items:      make(map[uuid.UUID]*list.Element),
		order:      list.New(),
		cron:       cron.New(),
	}
}

// Start registers the eviction sweep and starts the cron scheduler.
// schedule is a standard 5-field cron expression; "@every 1m" is a
// reasonable default for a TTL measured in minutes.
func (c *Cache) Start(schedule string) error {
	_, err := c.cron.AddFunc(schedule, c.sweep)
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the eviction sweep, waiting for any in-flight run to finish.
func (c *Cache) Stop() {
	<-c.cron.Stop().Done()
}

// GetByID returns the contract for id, serving from cache when present
// and unexpired, otherwise reading through to the store and caching the
// result.
func (c *Cache) GetByID(ctx context.Context, id uuid.UUID) (*contracts.Contract, error) {
	if ct, ok := c.get(id); ok {
		return ct, nil
	}

	ct, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(id, ct)
	return ct, nil
}

func (c *Cache) get(id uuid.UUID) (*contracts.Contract, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.contract, true
}

func (c *Cache) put(id uuid.UUID, ct *contracts.Contract) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[id]; ok {
		c.removeLocked(el)
	}

	el := c.order.PushFront(&entry{id: id, contract: ct, expiresAt: time.Now().Add(c.ttl)})
	c.items[id] = el

	for c.order.Len() > c.maxEntries {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.removeLocked(back)
	}
}

// Invalidate drops id from the cache. domain/contracts.Store.Upsert does
// not know about this cache, and nothing in this module calls Invalidate
// after an upsert; an updated contract is otherwise served until its TTL.
func (c *Cache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		c.removeLocked(el)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.items, e.id)
	c.order.Remove(el)
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var next *list.Element
	for el := c.order.Back(); el != nil; el = next {
		next = el.Prev()
		e := el.Value.(*entry)
		if now.After(e.expiresAt) {
			c.removeLocked(el)
		}
	}
}
