// Package spi declares the collaborator interfaces the access control
// engine depends on but never implements: entry storage, identity
// context, schema resolution, set gathering, and dynamic ACL modules
// (spec.md §6). Concrete implementations are adapted from the host
// project's internal/store and internal/schema packages.
package spi

import "context"

// Entry is the minimal view of a directory entry the engine needs:
// its DN and its attribute values keyed by normalized attribute
// description name.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// EntryStore resolves entries and ancestry for the evaluator. It never
// mutates state; every method is read-only from the engine's point of
// view.
type EntryStore interface {
	// Entry fetches the entry named by ndn. It returns (nil, nil) if
	// no such entry exists — absence is not an error.
	Entry(ctx context.Context, ndn string) (*Entry, error)

	// Ancestors returns ndn's ancestor entries, nearest first, for ACI
	// walk-up (§4.5). Only entries that actually exist are returned.
	Ancestors(ctx context.Context, ndn string) ([]*Entry, error)
}

// GroupResolver answers group-membership predicates for the "group"
// who-clause dimension (§4.3).
type GroupResolver interface {
	// IsMember reports whether memberDN is, directly or recursively, a
	// member of the group identified by groupDN using the named member
	// attribute (e.g. "member", "memberUid").
	IsMember(ctx context.Context, groupDN, memberDN, memberAttr string) (bool, error)
}

// IdentityContext describes the bound identity and connection the
// request is evaluated for (§3, §6).
type IdentityContext struct {
	// BoundDN is the normalized DN of the authenticated identity, or
	// "" for an anonymous bind.
	BoundDN string
	// IsRoot reports whether BoundDN holds the backend's configured
	// root/superuser identity (§7 short-circuit).
	IsRoot bool
	// PeerAddr is the client's network address, used by IP-style who
	// clauses.
	PeerAddr string
	// SSF carries the negotiated security strength factors used by the
	// "ssf"/"transport_ssf"/"tls_ssf"/"sasl_ssf" who-clause dimensions.
	SSF SecurityStrength
}

// SecurityStrength holds the security strength factor floors an "ssf"
// who clause can test against.
type SecurityStrength struct {
	Overall   int
	Transport int
	TLS       int
	SASL      int
}

// SchemaResolver classifies and normalizes attribute descriptions for
// the engine (§4.1, §4.6).
type SchemaResolver interface {
	// ResolveName normalizes an attribute description to its primary
	// name, resolving any configured alias.
	ResolveName(attr string) string

	// IsNoUserModification reports whether attr is operationally
	// maintained and therefore never user-writable (§4.6).
	IsNoUserModification(attr string) bool

	// MatchValues reports whether any value of attr on entry equals
	// (by the attribute's equality matching rule) one of want.
	MatchValues(entry *Entry, attr string, want []string) bool

	// TestFilter evaluates an RFC 4515 filter string against entry,
	// used by the rule selector's filter clause (§4.2 point 4).
	TestFilter(entry *Entry, filter string) (bool, error)
}

// SetGatherer resolves a Set expression's URL-shaped or attr@entry
// references into the operand value list the "set" who clause
// compares against (§4.3 "Set", §6 "Set matcher").
type SetGatherer interface {
	Gather(ctx context.Context, ref string, subject *Entry) ([]string, error)
}

// DynamicModule is the extension point dynamic ACL modules register
// against (§9 design note: the built-in five-field ACI parser is
// simply the first registrant).
type DynamicModule interface {
	// Name identifies the module, e.g. "aci" for the built-in parser.
	Name() string

	// Applicable reports whether attr (the attribute carrying the
	// dynamic ACL value, e.g. "aci") is one this module handles.
	Applicable(attr string) bool
}
