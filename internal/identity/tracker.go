// Package identity tracks the original to current path association for one build.
//
// The tracker moves through three states. While Assigning, routes may record
// and re-record entries. Freeze produces an immutable Snapshot; from then on
// every mutation is a fatal error. BeginRewriting marks the point after which
// references are being computed from the snapshot.
package identity

import (
	"fmt"
	"maps"
	"sync"

	"git.home.luguber.info/inful/sitelinks/internal/foundation/errors"
)

// State is the tracker lifecycle phase.
type State int

const (
	StateAssigning State = iota
	StateFrozen
	StateRewriting
)

func (s State) String() string {
	switch s {
	case StateAssigning:
		return "assigning"
	case StateFrozen:
		return "frozen"
	case StateRewriting:
		return "rewriting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Tracker is the mutable identity map used during route assignment.
type Tracker struct {
	mu        sync.Mutex
	state     State
	toCurrent map[string]string
	toOrig    map[string]string
	snapshot  *Snapshot
}

// NewTracker creates an empty tracker in the Assigning state.
func NewTracker() *Tracker {
	return &Tracker{
		toCurrent: make(map[string]string),
		toOrig:    make(map[string]string),
	}
}

// State returns the current phase.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Record registers or updates original -> current. Recording after Freeze, or
// claiming a current path already owned by another original, is fatal.
func (t *Tracker) Record(original, current string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateAssigning {
		return errors.IdentityError("identity map mutated after freeze").
			WithContext("state", t.state.String()).
			WithContext("original", original).
			WithContext("current", current).
			Build()
	}
	if owner, taken := t.toOrig[current]; taken && owner != original {
		return errors.IdentityError("duplicate current path").
			WithContext("current", current).
			WithContext("original", original).
			WithContext("owner", owner).
			Build()
	}
	if prev, ok := t.toCurrent[original]; ok {
		delete(t.toOrig, prev)
	}
	t.toCurrent[original] = current
	t.toOrig[current] = original
	return nil
}

// RecordSynthetic registers an item created directly at its final path.
func (t *Tracker) RecordSynthetic(current string) error {
	return t.Record(current, current)
}

// Resolve returns the current path for original.
func (t *Tracker) Resolve(original string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.toCurrent[original]
	return c, ok
}

// ResolveReverse returns the original path owning current.
func (t *Tracker) ResolveReverse(current string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.toOrig[current]
	return o, ok
}

// Len returns the number of entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.toCurrent)
}

// Freeze ends the Assigning phase and returns the read-only snapshot. A second
// call returns the same snapshot.
func (t *Tracker) Freeze() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.snapshot == nil {
		t.snapshot = &Snapshot{
			toCurrent: maps.Clone(t.toCurrent),
			toOrig:    maps.Clone(t.toOrig),
		}
		t.state = StateFrozen
	}
	return t.snapshot
}

// BeginRewriting moves a frozen tracker into the Rewriting state.
func (t *Tracker) BeginRewriting() (*Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateAssigning {
		return nil, errors.IdentityError("rewriting started before identity map was frozen").
			WithContext("entries", len(t.toCurrent)).
			Build()
	}
	t.state = StateRewriting
	return t.snapshot, nil
}

// Snapshot is a frozen identity map. It is never mutated, so concurrent
// readers need no locking.
type Snapshot struct {
	toCurrent map[string]string
	toOrig    map[string]string
}

// Resolve returns the current path for original.
func (s *Snapshot) Resolve(original string) (string, bool) {
	c, ok := s.toCurrent[original]
	return c, ok
}

// ResolveReverse returns the original path owning current.
func (s *Snapshot) ResolveReverse(current string) (string, bool) {
	o, ok := s.toOrig[current]
	return o, ok
}

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.toCurrent) }

// Entries calls fn for every original/current pair in unspecified order.
func (s *Snapshot) Entries(fn func(original, current string)) {
	for o, c := range s.toCurrent {
		fn(o, c)
	}
}
