package model

// DocSync is the per-document handle onto the external synchronization
// layer. All methods complete through callbacks; none block. The model
// never inspects what the handle does on the wire, it only reacts to
// completion and to remote operations delivered through OnOp.
type DocSync interface {
	// Fetch loads the current remote snapshot without a standing
	// subscription.
	Fetch(done func(err error))

	// Subscribe loads the snapshot and keeps it updated with remote
	// operations.
	Subscribe(done func(err error))

	// Unsubscribe tears down a standing subscription.
	Unsubscribe(done func(err error))

	// Subscribed reports whether a subscription is currently active.
	Subscribed() bool

	// Data returns the handle's current snapshot.
	Data() any

	// HasPending reports whether operations for this document are
	// still in flight.
	HasPending() bool

	// WhenNothingPending runs fn once no operations remain in flight,
	// immediately when none are.
	WhenNothingPending(fn func())

	// OnOp registers the callback invoked for every remote operation
	// applied to this document. At most one callback is registered per
	// handle.
	OnOp(fn func(op Op))

	// Destroy releases the handle. No callbacks fire afterwards.
	Destroy()
}

// Backend creates document sync handles. Handles for the same
// (collection, id) pair share remote state.
type Backend interface {
	Doc(collection, id string) DocSync
}

// BulkStarter is optionally implemented by a Backend that can batch
// the network traffic of a multi-target fetch or subscribe.
type BulkStarter interface {
	StartBulk()
	EndBulk()
}

// QueryRef is the handle onto an externally executed live query. The
// lifecycle consults registered queries during eviction: a document
// listed in the id map of a query whose fetch or subscribe count is
// positive stays resident.
type QueryRef interface {
	Collection() string

	// IDMap maps document ids to positive membership counts for the
	// current result set.
	IDMap() map[string]int

	FetchCount() int
	SubscribeCount() int

	Fetch(done func(err error))
	Subscribe(done func(err error))
	Unfetch(done func(err error))
	Unsubscribe(done func(err error))
}

// OpKind tags a document operation.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpDel    OpKind = "del"
	OpInsert OpKind = "insert"
	OpRemove OpKind = "remove"
	OpMove   OpKind = "move"
)

// Op is one document operation as exchanged with the backend. Path is
// the dotted subpath below collection.id; the empty string addresses
// the document root. Source identifies the originating connection so
// listeners can suppress echo.
type Op struct {
	Kind    OpKind `json:"kind"`
	Path    string `json:"path,omitempty"`
	Value   any    `json:"value,omitempty"`
	Values  []any  `json:"values,omitempty"`
	Index   int    `json:"index,omitempty"`
	From    int    `json:"from,omitempty"`
	To      int    `json:"to,omitempty"`
	HowMany int    `json:"howMany,omitempty"`
	Source  string `json:"source,omitempty"`
}
