package event

// Keys with reserved meaning in a passed bag.
const (
	// PassedRemote marks a mutation that arrived from the backend
	// rather than a local mutator call.
	PassedRemote = "remote"
	// PassedSource carries the origin id of a remote mutation.
	PassedSource = "source"
)

// Passed is the free-form context bag attached to every mutation
// emitted from a scope. Listeners receive it with the event and use it
// to tell apart mutation origins, for example skipping writes they
// initiated themselves.
type Passed map[string]any

// Clone returns a shallow copy. Values are shared; a nil bag clones to
// nil.
func (p Passed) Clone() Passed {
	if p == nil {
		return nil
	}
	out := make(Passed, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge combines the receiver, the parent scope's bag, with an
// override. With invert false the override wins conflicting keys; with
// invert true existing parent values win. The result is always a fresh
// map and neither input is modified.
func (p Passed) Merge(override Passed, invert bool) Passed {
	merged := make(Passed, len(p)+len(override))
	if invert {
		for k, v := range override {
			merged[k] = v
		}
		for k, v := range p {
			merged[k] = v
		}
		return merged
	}
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Remote reports whether the bag marks a backend-originated mutation.
func (p Passed) Remote() bool {
	v, ok := p[PassedRemote].(bool)
	return ok && v
}

// Source returns the origin id for a remote mutation, or empty.
func (p Passed) Source() string {
	v, _ := p[PassedSource].(string)
	return v
}
