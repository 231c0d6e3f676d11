// Package rule implements the Rule Selector (spec.md §4.2): an
// ordered policy list of entry-scoped AccessControl rules, each
// carrying its own ordered who-clause list, matched against a request
// in declaration order with first-match-wins semantics.
package rule

import (
	"github.com/smarzola/ldapacl/internal/access/dn"
	"github.com/smarzola/ldapacl/internal/access/mask"
	"github.com/smarzola/ldapacl/internal/access/pattern"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/who"
)

// EntryPredicate selects which entries a rule applies to: a DN
// pattern under a structural style (or a compiled regex), an optional
// attribute-description allow-list, an optional value predicate, and
// an optional filter string evaluated against the entry.
type EntryPredicate struct {
	Style   pattern.Style
	Pattern string
	Level   int

	Attributes []string

	ValueScoped    bool
	ValueStyle     pattern.Style
	ValuePattern   string
	ValueDNSyntax  bool
	ValueMatchRule string

	Filter string
}

// Clause pairs a who clause with the effect it applies when matched.
type Clause struct {
	Who    who.Access
	Effect mask.Effect
}

// AccessControl is one rule in a policy list: an entry predicate plus
// its ordered who clauses.
type AccessControl struct {
	Entry   EntryPredicate
	Clauses []Clause
	next    *AccessControl
}

// PolicyList is a singly-linked, ordered collection of rules.
type PolicyList struct {
	head *AccessControl
	tail *AccessControl
}

// Append adds rule to the end of the list, preserving declaration
// order for first-match-wins selection.
func (p *PolicyList) Append(r *AccessControl) {
	if p.head == nil {
		p.head = r
		p.tail = r
		return
	}
	p.tail.next = r
	p.tail = r
}

// Head returns the first rule in the list, or nil for an empty list.
func (p *PolicyList) Head() *AccessControl {
	if p == nil {
		return nil
	}
	return p.head
}

// Empty reports whether the list has no rules.
func (p *PolicyList) Empty() bool {
	return p == nil || p.head == nil
}

// Next returns the next rule in the list after cur (nil to start from
// the head).
func Next(list *PolicyList, cur *AccessControl) *AccessControl {
	if cur == nil {
		return list.Head()
	}
	return cur.next
}

// NewRule builds a rule scoped to the given entry-DN style and
// pattern, with no who clauses yet. Use To to configure attribute
// lists, value predicates, or a filter, and Who to append clauses.
func NewRule(style pattern.Style, dnPattern string) *AccessControl {
	return &AccessControl{Entry: EntryPredicate{Style: style, Pattern: dnPattern}}
}

// To narrows the rule's entry predicate to a specific attribute
// description allow-list, returning the same rule for chaining.
func (r *AccessControl) To(attrs ...string) *AccessControl {
	r.Entry.Attributes = attrs
	return r
}

// Filter narrows the rule's entry predicate with an LDAP filter
// string, returning the same rule for chaining.
func (r *AccessControl) Filter(filter string) *AccessControl {
	r.Entry.Filter = filter
	return r
}

// Who appends a clause to the rule's ordered who-clause list,
// returning the same rule for chaining.
func (r *AccessControl) Who(access who.Access, effect mask.Effect) *AccessControl {
	r.Clauses = append(r.Clauses, Clause{Who: access, Effect: effect})
	return r
}

// SchemaResolver is the narrow slice of spi.SchemaResolver the
// selector needs to check attribute-list membership, value matching,
// and filters.
type SchemaResolver interface {
	ResolveName(attr string) string
	IsInList(attr string, list []string) bool
	MatchValue(entryAttr, value, matchRule string) bool
	TestEntryFilter(ctx *reqctx.Context, filter string) bool
}

// Select walks list starting after cur and returns the first rule
// whose entry predicate matches the request, along with the regex
// submatches (the whole match, then each captured substring) from the
// entry-DN match (nil for non-REGEX styles).
// It returns (nil, nil) when the list is exhausted.
func Select(list *PolicyList, cur *AccessControl, ctx *reqctx.Context, schema SchemaResolver) (*AccessControl, []string) {
	for r := Next(list, cur); r != nil; r = Next(list, r) {
		if matches, m := matchEntry(r.Entry, ctx, schema); matches {
			return r, m
		}
	}
	return nil, nil
}

func matchEntry(p EntryPredicate, ctx *reqctx.Context, schema SchemaResolver) (bool, []string) {
	ndn := dn.MustNormalize(ctx.Request.EntryDN)
	var matches []string

	if p.Style == pattern.StyleRegex {
		re, err := pattern.CompileRegex(p.Pattern)
		if err != nil {
			return false, nil
		}
		m := re.FindStringSubmatch(ndn)
		if m == nil {
			return false, nil
		}
		matches = m
	} else if p.Pattern != "" {
		np := dn.MustNormalize(p.Pattern)
		if !pattern.MatchDN(p.Style, np, ndn, p.Level) {
			return false, nil
		}
	}

	if len(p.Attributes) > 0 {
		if ctx.Request.Attribute == "" || !schema.IsInList(ctx.Request.Attribute, p.Attributes) {
			return false, nil
		}
	}

	if p.ValueScoped {
		if !ctx.Request.HasValue() {
			return false, nil
		}
		if !matchValue(p, *ctx.Request.Value, ctx, schema) {
			return false, nil
		}
	}

	if p.Filter != "" {
		if !schema.TestEntryFilter(ctx, p.Filter) {
			return false, nil
		}
	}

	return true, matches
}

func matchValue(p EntryPredicate, value string, ctx *reqctx.Context, schema SchemaResolver) bool {
	if p.ValueStyle == pattern.StyleRegex {
		re, err := pattern.CompileRegex(p.ValuePattern)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	}
	if p.ValueDNSyntax {
		np := dn.MustNormalize(p.ValuePattern)
		nv := dn.MustNormalize(value)
		return pattern.MatchDN(p.ValueStyle, np, nv, p.Level)
	}
	return schema.MatchValue(value, p.ValuePattern, p.ValueMatchRule)
}
