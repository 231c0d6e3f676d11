package schema

import (
	"strings"

	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/spi"
	"github.com/smarzola/ldapacl/internal/models"
)

// noUserModAttributes lists operationally-maintained attributes the
// access control engine classifies as no-user-modification: the
// server's protectedAttributes (createTimestamp, modifyTimestamp) plus
// four further operational attributes. The ACI attribute is not among
// them.
var noUserModAttributes = []string{
	"createtimestamp",
	"modifytimestamp",
	"entryuuid",
	"entrycsn",
	"creatorsname",
	"modifiersname",
}

// Resolver adapts this package's attribute-description and filter
// handling to the access control engine's SchemaResolver and
// rule.SchemaResolver collaborator interfaces.
type Resolver struct {
	// Aliases maps a configured alternate attribute-description name
	// to its canonical form, e.g. "userPwd" -> "userPassword".
	Aliases map[string]string
}

// NewResolver builds a Resolver with no configured aliases.
func NewResolver() *Resolver {
	return &Resolver{Aliases: map[string]string{}}
}

// ResolveName normalizes attr to lower case and applies any configured
// alias.
func (r *Resolver) ResolveName(attr string) string {
	lower := strings.ToLower(attr)
	if canon, ok := r.Aliases[lower]; ok {
		return canon
	}
	return lower
}

// IsNoUserModification reports whether attr is operationally
// maintained.
func (r *Resolver) IsNoUserModification(attr string) bool {
	name := r.ResolveName(attr)
	for _, a := range noUserModAttributes {
		if name == a {
			return true
		}
	}
	return false
}

// IsInList reports whether attr appears in list, by normalized-name
// comparison. Attribute-description subtyping is not modeled by this
// schema (the host project carries no subtype table), so membership is
// exact-name after normalization.
func (r *Resolver) IsInList(attr string, list []string) bool {
	name := r.ResolveName(attr)
	for _, a := range list {
		if r.ResolveName(a) == name {
			return true
		}
	}
	return false
}

// MatchValue reports whether value equals want under matchRule.
// "ci" (the default) does a case-insensitive compare, matching the
// host project's LDAP string-attribute equality behavior; "cs"
// requires an exact byte match.
func (r *Resolver) MatchValue(value, want, matchRule string) bool {
	if matchRule == "cs" {
		return value == want
	}
	return strings.EqualFold(value, want)
}

// MatchValues reports whether any value of attr on entry equals one of
// want under the attribute's (case-insensitive) equality rule.
func (r *Resolver) MatchValues(entry *spi.Entry, attr string, want []string) bool {
	if entry == nil {
		return false
	}
	for _, v := range entry.Attributes[r.ResolveName(attr)] {
		for _, w := range want {
			if r.MatchValue(v, w, "ci") {
				return true
			}
		}
	}
	return false
}

// TestFilter evaluates filter against entry using this package's
// existing filter parser and matcher.
func (r *Resolver) TestFilter(entry *spi.Entry, filter string) (bool, error) {
	if entry == nil {
		return false, nil
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return false, err
	}
	return f.Matches(toModelEntry(entry)), nil
}

// TestEntryFilter evaluates filter against the entry carried in ctx,
// coercing any parse error to "no match" per the engine's fail-closed
// contract (spec.md §7).
func (r *Resolver) TestEntryFilter(ctx *reqctx.Context, filter string) bool {
	ok, err := r.TestFilter(ctx.Entry, filter)
	if err != nil {
		return false
	}
	return ok
}

// toModelEntry adapts the engine's minimal Entry view to this
// package's models.Entry shape for reuse of the existing filter
// matcher.
func toModelEntry(e *spi.Entry) *models.Entry {
	return &models.Entry{
		DN:         e.DN,
		Attributes: e.Attributes,
	}
}
