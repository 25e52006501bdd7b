package event

import "strings"

// Type identifies a kind of mutation event.
type Type string

const (
	TypeChange Type = "change"
	TypeLoad   Type = "load"
	TypeUnload Type = "unload"
	TypeInsert Type = "insert"
	TypeRemove Type = "remove"
	TypeMove   Type = "move"

	// TypeAll is a listener-side pseudo-type whose listeners receive
	// every mutation regardless of its concrete type. Mutations are
	// never emitted with it.
	TypeAll Type = "all"
)

const immediateSuffix = "Immediate"

// Types lists the concrete mutation types in a fixed order.
var Types = []Type{TypeChange, TypeLoad, TypeUnload, TypeInsert, TypeRemove, TypeMove}

// Immediate returns the immediate-phase variant of a concrete type,
// "changeImmediate" for "change". Immediate listeners run synchronously
// at the mutation site even while a dispatch batch is draining.
func (t Type) Immediate() Type {
	return Type(string(t) + immediateSuffix)
}

// IsImmediate reports whether t names an immediate-phase variant.
func (t Type) IsImmediate() bool {
	return strings.HasSuffix(string(t), immediateSuffix)
}

// Base strips an immediate suffix, mapping "changeImmediate" back to
// "change". Concrete types map to themselves.
func (t Type) Base() Type {
	return Type(strings.TrimSuffix(string(t), immediateSuffix))
}

// Valid reports whether t is a concrete mutation type that can be
// emitted.
func (t Type) Valid() bool {
	switch t {
	case TypeChange, TypeLoad, TypeUnload, TypeInsert, TypeRemove, TypeMove:
		return true
	}
	return false
}

// CanListen reports whether t is acceptable in a listener registration:
// a concrete type, its immediate variant, or the "all" pseudo-type.
func (t Type) CanListen() bool {
	return t == TypeAll || t.Base().Valid()
}

// A Mutation describes one applied change to a document tree. Values
// are immutable once constructed.
type Mutation interface {
	// Type returns the event type delivered to listeners.
	Type() Type
	// Passed returns the context bag attached by the emitting scope.
	Passed() Passed
	// Clone returns a copy carrying the same payload and passed bag.
	Clone() Mutation
	// LegacyArgs flattens the payload in historical callback-argument
	// order, without the trailing passed bag.
	LegacyArgs() []any

	mutation()
}

// Change reports a value written at a path. Previous is nil when the
// path did not exist before.
type Change struct {
	Value    any
	Previous any
	passed   Passed
}

// NewChange builds a change event.
func NewChange(value, previous any, passed Passed) *Change {
	return &Change{Value: value, Previous: previous, passed: passed}
}

func (e *Change) Type() Type        { return TypeChange }
func (e *Change) Passed() Passed    { return e.passed }
func (e *Change) Clone() Mutation   { c := *e; return &c }
func (e *Change) LegacyArgs() []any { return []any{e.Value, e.Previous} }
func (e *Change) mutation()         {}

// Load reports a document becoming resident, with its full snapshot.
type Load struct {
	Document any
	passed   Passed
}

// NewLoad builds a load event.
func NewLoad(document any, passed Passed) *Load {
	return &Load{Document: document, passed: passed}
}

func (e *Load) Type() Type        { return TypeLoad }
func (e *Load) Passed() Passed    { return e.passed }
func (e *Load) Clone() Mutation   { c := *e; return &c }
func (e *Load) LegacyArgs() []any { return []any{e.Document} }
func (e *Load) mutation()         {}

// Unload reports a document eviction, with the snapshot taken just
// before removal.
type Unload struct {
	Previous any
	passed   Passed
}

// NewUnload builds an unload event.
func NewUnload(previous any, passed Passed) *Unload {
	return &Unload{Previous: previous, passed: passed}
}

func (e *Unload) Type() Type        { return TypeUnload }
func (e *Unload) Passed() Passed    { return e.passed }
func (e *Unload) Clone() Mutation   { c := *e; return &c }
func (e *Unload) LegacyArgs() []any { return []any{e.Previous} }
func (e *Unload) mutation()         {}

// Insert reports values spliced into an array at Index.
type Insert struct {
	Index  int
	Values []any
	passed Passed
}

// NewInsert builds an insert event.
func NewInsert(index int, values []any, passed Passed) *Insert {
	return &Insert{Index: index, Values: values, passed: passed}
}

func (e *Insert) Type() Type        { return TypeInsert }
func (e *Insert) Passed() Passed    { return e.passed }
func (e *Insert) Clone() Mutation   { c := *e; return &c }
func (e *Insert) LegacyArgs() []any { return []any{e.Index, e.Values} }
func (e *Insert) mutation()         {}

// Remove reports values deleted from an array starting at Index.
type Remove struct {
	Index   int
	Removed []any
	passed  Passed
}

// NewRemove builds a remove event.
func NewRemove(index int, removed []any, passed Passed) *Remove {
	return &Remove{Index: index, Removed: removed, passed: passed}
}

func (e *Remove) Type() Type        { return TypeRemove }
func (e *Remove) Passed() Passed    { return e.passed }
func (e *Remove) Clone() Mutation   { c := *e; return &c }
func (e *Remove) LegacyArgs() []any { return []any{e.Index, e.Removed} }
func (e *Remove) mutation()         {}

// Move reports HowMany contiguous array elements relocated from From
// to To.
type Move struct {
	From    int
	To      int
	HowMany int
	passed  Passed
}

// NewMove builds a move event.
func NewMove(from, to, howMany int, passed Passed) *Move {
	return &Move{From: from, To: to, HowMany: howMany, passed: passed}
}

func (e *Move) Type() Type        { return TypeMove }
func (e *Move) Passed() Passed    { return e.passed }
func (e *Move) Clone() Mutation   { c := *e; return &c }
func (e *Move) LegacyArgs() []any { return []any{e.From, e.To, e.HowMany} }
func (e *Move) mutation()         {}
