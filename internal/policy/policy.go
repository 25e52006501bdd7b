// Package policy compiles per-collection retention policy from CUE
// declarations into the structs the document lifecycle consults.
package policy

import "time"

// Policy is the compiled retention policy for one collection. Zero
// values mean "inherit the root model's setting"; UnloadDelaySet
// distinguishes an explicit zero delay from an absent one.
type Policy struct {
	Collection     string
	UnloadDelay    time.Duration
	UnloadDelaySet bool
	FetchOnly      bool
	Local          bool
}

// Set holds compiled policies keyed by collection name.
type Set map[string]Policy

// For returns the policy for a collection, if one was declared.
func (s Set) For(collection string) (Policy, bool) {
	p, ok := s[collection]
	return p, ok
}
