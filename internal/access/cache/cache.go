// Package cache implements the per-operation State cache spec.md §3
// and §9 describe: memoization of value-dependent lookups (group
// membership, set gathers, entry filter results) keyed so that two
// identical sub-checks within one operation are resolved once.
//
// A State is scoped to one operation (one or more engine calls made
// for it) and is never shared across operations — sharing it would let a stale membership or set result
// leak into an unrelated request, which is exactly what spec.md's
// "per-operation" qualifier forbids.
package cache

import "sync"

// State memoizes the outcomes of value-dependent checks for the
// lifetime of one operation, across every access.Engine call handed
// the same State.
type State struct {
	mu      sync.Mutex
	groups  map[groupKey]bool
	sets    map[string][]string
	filters map[filterKey]bool
}

type groupKey struct {
	groupDN    string
	memberDN   string
	memberAttr string
}

type filterKey struct {
	entryDN string
	filter  string
}

// New returns an empty State ready for a single engine call.
func New() *State {
	return &State{
		groups:  make(map[groupKey]bool),
		sets:    make(map[string][]string),
		filters: make(map[filterKey]bool),
	}
}

// GroupMembership returns a cached membership result and whether it
// was present.
func (s *State) GroupMembership(groupDN, memberDN, memberAttr string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.groups[groupKey{groupDN, memberDN, memberAttr}]
	return v, ok
}

// SetGroupMembership stores a membership result for later reuse.
func (s *State) SetGroupMembership(groupDN, memberDN, memberAttr string, result bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[groupKey{groupDN, memberDN, memberAttr}] = result
}

// SetValues returns a cached set-gather result and whether it was
// present.
func (s *State) SetValues(ref string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.sets[ref]
	return v, ok
}

// SetSetValues stores a set-gather result for later reuse.
func (s *State) SetSetValues(ref string, values []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[ref] = values
}

// FilterResult returns a cached filter-evaluation result and whether
// it was present.
func (s *State) FilterResult(entryDN, filter string) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.filters[filterKey{entryDN, filter}]
	return v, ok
}

// SetFilterResult stores a filter-evaluation result for later reuse.
func (s *State) SetFilterResult(entryDN, filter string, result bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[filterKey{entryDN, filter}] = result
}
