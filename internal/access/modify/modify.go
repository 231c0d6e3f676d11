// Package modify implements the Modification Check (spec.md §4.6):
// the top-level driver that authorizes each attribute/value in a
// modification list, choosing ADD vs DELETE semantics and enforcing
// REPLACE as WRITE_DEL-then-WRITE_ADD.
package modify

import (
	"context"

	"github.com/smarzola/ldapacl/internal/access"
	"github.com/smarzola/ldapacl/internal/access/cache"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/spi"
)

// Op names a single modification's kind.
type Op int

const (
	OpAdd Op = iota
	OpDelete
	OpReplace
	// OpSoftAdd is used for internal rename/modrdn bookkeeping and is
	// unconditionally granted.
	OpSoftAdd
)

// Mod is one entry in a modification list: an operation, the
// attribute it targets, and the values involved (empty for a
// value-less delete or a value-less replace-clear).
type Mod struct {
	Op     Op
	Attr   string
	Values []string

	// Internal marks a modification performed by the server itself
	// (e.g. maintaining an operational attribute), unconditionally
	// granted regardless of policy.
	Internal bool
}

// Checker authorizes a modification list against an Engine.
type Checker struct {
	Engine *access.Engine
	Schema spi.SchemaResolver
}

// NewChecker builds a Checker.
func NewChecker(engine *access.Engine, schema spi.SchemaResolver) *Checker {
	return &Checker{Engine: engine, Schema: schema}
}

// Allowed reports whether every modification in mods is authorized for
// ident against entryDN, sharing one state cache across the whole list
// so partial results for the same attribute are retained across values
// (spec.md §4.6 "a fresh state cache is used for the whole list").
func (c *Checker) Allowed(ctx context.Context, ident spi.IdentityContext, entryDN string, entry *spi.Entry, mods []Mod) bool {
	state := cache.New()
	for _, m := range mods {
		if !c.allowedOne(ctx, ident, entryDN, entry, state, m) {
			return false
		}
	}
	return true
}

func (c *Checker) allowedOne(ctx context.Context, ident spi.IdentityContext, entryDN string, entry *spi.Entry, state *cache.State, m Mod) bool {
	if m.Internal || m.Op == OpSoftAdd {
		return true
	}
	if c.Schema.IsNoUserModification(m.Attr) {
		return true
	}

	switch m.Op {
	case OpReplace:
		if !c.checkAttrLevel(ctx, ident, entryDN, entry, state, m.Attr, priv.LevelWriteDel) {
			return false
		}
		return c.checkEachValue(ctx, ident, entryDN, entry, state, m.Attr, m.Values, priv.LevelWriteAdd)
	case OpAdd:
		return c.checkEachValue(ctx, ident, entryDN, entry, state, m.Attr, m.Values, priv.LevelWriteAdd)
	case OpDelete:
		if len(m.Values) == 0 {
			return c.checkAttrLevel(ctx, ident, entryDN, entry, state, m.Attr, priv.LevelWriteDel)
		}
		return c.checkEachValue(ctx, ident, entryDN, entry, state, m.Attr, m.Values, priv.LevelWriteDel)
	default:
		return true
	}
}

func (c *Checker) checkAttrLevel(ctx context.Context, ident spi.IdentityContext, entryDN string, entry *spi.Entry, state *cache.State, attr string, level priv.Level) bool {
	req := reqctx.Request{
		EntryDN:   entryDN,
		Attribute: attr,
		Requested: priv.Requested{Level: level},
	}
	ok, _ := c.Engine.AccessAllowedMask(ctx, ident, entry, req, state)
	return ok
}

func (c *Checker) checkEachValue(ctx context.Context, ident spi.IdentityContext, entryDN string, entry *spi.Entry, state *cache.State, attr string, values []string, level priv.Level) bool {
	for _, v := range values {
		val := v
		req := reqctx.Request{
			EntryDN:   entryDN,
			Attribute: attr,
			Value:     &val,
			Requested: priv.Requested{Level: level},
		}
		ok, _ := c.Engine.AccessAllowedMask(ctx, ident, entry, req, state)
		if !ok {
			return false
		}
	}
	return true
}
