// Package reqctx defines the request and evaluation context types
// threaded through the access control engine's components: the
// requested operation (spec.md §3 "Requested access") and the full
// context (identity, entry, collaborators, per-operation cache) a
// who-clause dimension or ACI evaluation needs to reach a verdict.
package reqctx

import (
	"context"

	"github.com/smarzola/ldapacl/internal/access/cache"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/spi"
)

// Request describes one access check: the target entry, the attribute
// description, an optional value, and the requested privilege.
type Request struct {
	EntryDN   string
	Attribute string
	Value     *string
	Requested priv.Requested
}

// HasValue reports whether the request names a specific value rather
// than asking about the attribute as a whole.
func (r Request) HasValue() bool { return r.Value != nil }

// Context bundles everything a who-clause dimension, the rule
// selector, or the ACI engine needs to evaluate one Request: the
// parsed connection/identity state, the target entry, the
// collaborator interfaces, and the per-operation state cache.
type Context struct {
	Ctx      context.Context
	Request  Request
	Entry    *spi.Entry
	Identity spi.IdentityContext

	Store  spi.EntryStore
	Groups spi.GroupResolver
	Schema spi.SchemaResolver
	Sets   spi.SetGatherer

	State *cache.State

	// EntryMatches holds the regex submatches (whole match, then each
	// captured substring) produced by the rule selector's entry-DN
	// match, consumed by $N expansion in
	// who-clause patterns (spec.md §4.2, §4.3).
	EntryMatches []string
}
