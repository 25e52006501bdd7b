// Package event defines the mutation events delivered to listeners and
// the passed-context bag that rides along with them.
//
// Every applied mutation produces exactly one event: Change, Load,
// Unload, Insert, Remove, or Move. Events are immutable after
// construction and carry the emitting scope's passed context, so a
// listener can tell a local write from a replicated remote one without
// inspecting the payload.
package event
