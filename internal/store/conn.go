package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/ripple/internal/model"
)

// Conn adapts a Store into a model backend. One Conn stands in for one
// client connection: handles minted for the same (collection, id) pair
// are shared, injected operations are journaled before delivery, and
// registered live queries re-execute whenever a write touches their
// collection.
type Conn struct {
	store  *Store
	source string
	logger *slog.Logger

	mu      sync.Mutex
	handles map[string]*DocHandle
	queries map[*LiveQuery]struct{}
	paused  bool
	bulk    int
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithSource fixes the connection id instead of minting a random one.
// Injected operations carry it as their source unless the op already
// names its own.
func WithSource(id string) ConnOption {
	return func(c *Conn) { c.source = id }
}

// WithLogger routes connection logging. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = logger }
}

// NewConn creates a connection over an open store.
func NewConn(store *Store, opts ...ConnOption) *Conn {
	c := &Conn{
		store:   store,
		source:  uuid.Must(uuid.NewV7()).String(),
		logger:  slog.Default(),
		handles: make(map[string]*DocHandle),
		queries: make(map[*LiveQuery]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the connection id stamped onto injected operations.
func (c *Conn) Source() string {
	return c.source
}

// Doc returns the sync handle for a document. Handles are shared:
// repeated calls for the same pair return the same handle until it is
// destroyed.
func (c *Conn) Doc(collection, id string) model.DocSync {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := docKey(collection, id)
	if h, ok := c.handles[key]; ok {
		return h
	}
	h := &DocHandle{conn: c, collection: collection, id: id}
	c.handles[key] = h
	return h
}

// StartBulk opens a bulk window for a multi-target fetch or subscribe.
// The store has no wire to batch, so the depth only feeds logging.
func (c *Conn) StartBulk() {
	c.mu.Lock()
	c.bulk++
	depth := c.bulk
	c.mu.Unlock()
	c.logger.Debug("bulk window opened", "depth", depth)
}

// EndBulk closes the innermost bulk window.
func (c *Conn) EndBulk() {
	c.mu.Lock()
	if c.bulk > 0 {
		c.bulk--
	}
	depth := c.bulk
	c.mu.Unlock()
	c.logger.Debug("bulk window closed", "depth", depth)
}

// Pause buffers operation delivery. Handles report pending work until
// Resume flushes them, which defers model-side eviction.
func (c *Conn) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume delivers buffered operations in arrival order and releases
// the pending state on every handle.
func (c *Conn) Resume() {
	c.mu.Lock()
	c.paused = false
	handles := make([]*DocHandle, 0, len(c.handles))
	for _, h := range c.handles {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.flush()
	}
}

// InjectOp applies one operation as the remote side of the connection:
// the stored snapshot is updated, the op is journaled, live queries on
// the collection re-execute, and the document's handle delivers the op
// when subscribed.
func (c *Conn) InjectOp(ctx context.Context, collection, id string, op model.Op) error {
	if op.Source == "" {
		op.Source = c.source
	}

	data, _, _, err := c.store.GetDoc(ctx, collection, id)
	if err != nil {
		return fmt.Errorf("inject op: %w", err)
	}
	next, err := model.ApplyOp(collection, id, data, op)
	if err != nil {
		return fmt.Errorf("inject op: %w", err)
	}
	if _, err := c.store.PutDoc(ctx, collection, id, next); err != nil {
		return fmt.Errorf("inject op: %w", err)
	}
	seq, err := c.store.AppendOp(ctx, collection, id, op)
	if err != nil {
		return fmt.Errorf("inject op: %w", err)
	}
	c.logger.Debug("op injected",
		"seq", seq,
		"collection", collection,
		"id", id,
		"kind", op.Kind)

	c.refreshQueries(ctx, collection)

	c.mu.Lock()
	h := c.handles[docKey(collection, id)]
	c.mu.Unlock()
	if h != nil {
		h.deliver(op)
	}
	return nil
}

func (c *Conn) registerQuery(q *LiveQuery) {
	c.mu.Lock()
	c.queries[q] = struct{}{}
	c.mu.Unlock()
}

func (c *Conn) unregisterQuery(q *LiveQuery) {
	c.mu.Lock()
	delete(c.queries, q)
	c.mu.Unlock()
}

// refreshQueries re-executes registered queries on the written
// collection. A failed refresh keeps the query's previous result set.
func (c *Conn) refreshQueries(ctx context.Context, collection string) {
	c.mu.Lock()
	queries := make([]*LiveQuery, 0, len(c.queries))
	for q := range c.queries {
		if q.Collection() == collection {
			queries = append(queries, q)
		}
	}
	c.mu.Unlock()

	for _, q := range queries {
		if err := q.refresh(ctx); err != nil {
			c.logger.Warn("live query refresh failed",
				"collection", collection,
				"err", err)
		}
	}
}

func (c *Conn) dropHandle(collection, id string) {
	c.mu.Lock()
	delete(c.handles, docKey(collection, id))
	c.mu.Unlock()
}

func (c *Conn) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
