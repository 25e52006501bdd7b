package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/ripple/internal/query"
)

// LiveQuery executes a compiled filter against the store and tracks
// the matching document ids. While referenced it stays registered with
// its connection and re-executes whenever a write touches its
// collection, delivering documents that newly match through the result
// callback. The model consults IDMap during eviction, so a referenced
// query keeps its members resident.
type LiveQuery struct {
	conn *Conn
	expr query.Expr
	sql  string
	args []any

	mu             sync.Mutex
	idMap          map[string]int
	fetchCount     int
	subscribeCount int
	onResult       func(id string, data any)
}

// NewLiveQuery compiles expr against the connection's store. The
// expression is validated here so a malformed filter fails before its
// first execution.
func NewLiveQuery(conn *Conn, expr query.Expr) (*LiveQuery, error) {
	sqlText, args, err := query.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &LiveQuery{
		conn:  conn,
		expr:  expr,
		sql:   sqlText,
		args:  args,
		idMap: map[string]int{},
	}, nil
}

// Collection returns the queried collection.
func (q *LiveQuery) Collection() string {
	return q.expr.Collection
}

// OnResult registers the callback receiving each document that enters
// the result set, typically wired to the model's snapshot ingestion.
func (q *LiveQuery) OnResult(fn func(id string, data any)) {
	q.mu.Lock()
	q.onResult = fn
	q.mu.Unlock()
}

// IDMap returns a copy of the current membership counts.
func (q *LiveQuery) IDMap() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]int, len(q.idMap))
	for id, n := range q.idMap {
		out[id] = n
	}
	return out
}

// FetchCount returns the live fetch reference count.
func (q *LiveQuery) FetchCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fetchCount
}

// SubscribeCount returns the live subscribe reference count.
func (q *LiveQuery) SubscribeCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.subscribeCount
}

// Fetch executes the query once and takes a fetch reference on the
// result set.
func (q *LiveQuery) Fetch(done func(err error)) {
	if err := q.refresh(context.Background()); err != nil {
		done(err)
		return
	}
	q.mu.Lock()
	q.fetchCount++
	q.mu.Unlock()
	q.conn.registerQuery(q)
	done(nil)
}

// Subscribe executes the query and takes a subscribe reference,
// keeping it registered for re-execution on writes.
func (q *LiveQuery) Subscribe(done func(err error)) {
	if err := q.refresh(context.Background()); err != nil {
		done(err)
		return
	}
	q.mu.Lock()
	q.subscribeCount++
	q.mu.Unlock()
	q.conn.registerQuery(q)
	done(nil)
}

// Unfetch releases one fetch reference.
func (q *LiveQuery) Unfetch(done func(err error)) {
	q.mu.Lock()
	if q.fetchCount > 0 {
		q.fetchCount--
	}
	q.mu.Unlock()
	q.maybeUnregister()
	done(nil)
}

// Unsubscribe releases one subscribe reference.
func (q *LiveQuery) Unsubscribe(done func(err error)) {
	q.mu.Lock()
	if q.subscribeCount > 0 {
		q.subscribeCount--
	}
	q.mu.Unlock()
	q.maybeUnregister()
	done(nil)
}

func (q *LiveQuery) maybeUnregister() {
	q.mu.Lock()
	idle := q.fetchCount == 0 && q.subscribeCount == 0
	q.mu.Unlock()
	if idle {
		q.conn.unregisterQuery(q)
	}
}

// refresh re-executes the query and rebuilds the id map. Documents
// that newly match are delivered through the result callback;
// documents that stopped matching just leave the map, which the next
// lifecycle check notices.
func (q *LiveQuery) refresh(ctx context.Context) error {
	rows, err := q.conn.store.Query(ctx, q.sql, q.args...)
	if err != nil {
		return fmt.Errorf("live query: %w", err)
	}
	defer rows.Close()

	type match struct {
		id   string
		data any
	}
	var matches []match
	for rows.Next() {
		var id, text string
		var version int64
		if err := rows.Scan(&id, &text, &version); err != nil {
			return fmt.Errorf("live query: scan: %w", err)
		}
		data, err := unmarshalDoc(text)
		if err != nil {
			return fmt.Errorf("live query: %w", err)
		}
		matches = append(matches, match{id: id, data: data})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("live query: rows: %w", err)
	}

	q.mu.Lock()
	prev := q.idMap
	next := make(map[string]int, len(matches))
	for _, m := range matches {
		next[m.id] = 1
	}
	q.idMap = next
	fn := q.onResult
	q.mu.Unlock()

	if fn != nil {
		for _, m := range matches {
			if prev[m.id] == 0 {
				fn(m.id, m.data)
			}
		}
	}
	return nil
}
