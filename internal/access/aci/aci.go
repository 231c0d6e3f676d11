// Package aci implements the ACI Engine (spec.md §4.5): parsing the
// five-field dynamic access-control-information value syntax,
// matching its scope and subject against a request, and combining the
// resulting grant/deny masks with a who-clause's own declared mask.
//
// Field layout: OID#scope#permissions#subject-type#subject-body. The
// subject-body field is everything left after the fourth '#',
// including any embedded '#' bytes — the "remainder of string"
// resolution of the reference implementation's subject-body parsing
// ambiguity (see the package-level note on Parse).
package aci

import (
	"errors"
	"strings"

	"github.com/smarzola/ldapacl/internal/access/dn"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
)

// ErrMalformed is returned when an ACI value does not have at least
// four '#'-separated fields before the subject body.
var ErrMalformed = errors.New("aci: malformed value")

// Scope is the ACI's own declared applicability.
type Scope int

const (
	ScopeEntry Scope = 1 << iota
	ScopeChildren
)

// ScopeSubtree is the OR of entry and children, matching the
// reference's SLAP_ACI_SCOPE_SUBTREE bitmask.
const ScopeSubtree = ScopeEntry | ScopeChildren

// WalkScope names which scope an evaluation pass is looking for: the
// entry's own ACIs use ScopeEntry, an ancestor walk uses ScopeChildren.
type WalkScope int

const (
	WalkEntry WalkScope = iota
	WalkChildren
)

// Subsumes reports whether the ACI's declared scope covers a lookup of
// kind w: ScopeEntry and ScopeSubtree satisfy WalkEntry; ScopeChildren
// and ScopeSubtree satisfy WalkChildren.
func (s Scope) Subsumes(w WalkScope) bool {
	if w == WalkEntry {
		return s&ScopeEntry != 0
	}
	return s&ScopeChildren != 0
}

// Action is grant or deny within one permission clause.
type Action int

const (
	ActionGrant Action = iota
	ActionDeny
)

// Permission is one `;`-structured element of the `$`-separated
// permissions list: an action, the rights it grants or denies, and the
// attributes it applies to ("[all]" and "[entry]" are kept verbatim).
type Permission struct {
	Action Action
	Rights priv.Mask
	Attrs  []string
}

// AppliesTo reports whether p names attr directly or via "[all]".
func (p Permission) AppliesTo(attr string) bool {
	for _, a := range p.Attrs {
		if a == "[all]" || strings.EqualFold(a, attr) {
			return true
		}
	}
	return false
}

// SubjectType enumerates the ACI subject kinds spec.md §4.5 lists.
type SubjectType int

const (
	SubjectPublic SubjectType = iota
	SubjectUsers
	SubjectAccessID
	SubjectSubtree
	SubjectOnelevel
	SubjectChildren
	SubjectSelf
	SubjectDNAttr
	SubjectGroup
	SubjectRole
	SubjectSet
	SubjectSetRef
)

// ACI is a parsed five-field value.
type ACI struct {
	OID         string
	Scope       Scope
	Permissions []Permission
	SubjectType SubjectType
	SubjectBody string
}

// Parse parses a raw ACI attribute value. The subject-body field is
// taken as the remainder of the string after the fourth '#', which may
// itself contain '#' bytes (e.g. an embedded DN) — inputs with fewer
// than four '#' separators are rejected rather than guessing at a
// shorter split.
func Parse(raw string) (*ACI, error) {
	idx := make([]int, 0, 4)
	for i := 0; i < len(raw) && len(idx) < 4; i++ {
		if raw[i] == '#' {
			idx = append(idx, i)
		}
	}
	if len(idx) < 4 {
		return nil, ErrMalformed
	}
	oid := raw[:idx[0]]
	scopeStr := raw[idx[0]+1 : idx[1]]
	permStr := raw[idx[1]+1 : idx[2]]
	subjTypeStr := raw[idx[2]+1 : idx[3]]
	subjBody := raw[idx[3]+1:]

	scope, err := parseScope(scopeStr)
	if err != nil {
		return nil, err
	}
	perms, err := parsePermissions(permStr)
	if err != nil {
		return nil, err
	}
	subjType, err := parseSubjectType(subjTypeStr)
	if err != nil {
		return nil, err
	}

	return &ACI{
		OID:         oid,
		Scope:       scope,
		Permissions: perms,
		SubjectType: subjType,
		SubjectBody: subjBody,
	}, nil
}

// String serializes a back into its five-field form; Parse followed by
// String is a no-op for well-formed input.
func (a *ACI) String() string {
	var perms []string
	for _, p := range a.Permissions {
		var action string
		if p.Action == ActionGrant {
			action = "grant"
		} else {
			action = "deny"
		}
		elems := []string{action, rightsString(p.Rights)}
		elems = append(elems, p.Attrs...)
		perms = append(perms, strings.Join(elems, ";"))
	}
	return strings.Join([]string{
		a.OID,
		scopeString(a.Scope),
		strings.Join(perms, "$"),
		subjectTypeString(a.SubjectType),
		a.SubjectBody,
	}, "#")
}

func parseScope(s string) (Scope, error) {
	switch s {
	case "entry":
		return ScopeEntry, nil
	case "children":
		return ScopeChildren, nil
	case "subtree":
		return ScopeSubtree, nil
	default:
		return 0, ErrMalformed
	}
}

func scopeString(s Scope) string {
	switch s {
	case ScopeEntry:
		return "entry"
	case ScopeChildren:
		return "children"
	default:
		return "subtree"
	}
}

func parseSubjectType(s string) (SubjectType, error) {
	switch s {
	case "public":
		return SubjectPublic, nil
	case "users":
		return SubjectUsers, nil
	case "access-id":
		return SubjectAccessID, nil
	case "subtree":
		return SubjectSubtree, nil
	case "onelevel":
		return SubjectOnelevel, nil
	case "children":
		return SubjectChildren, nil
	case "self":
		return SubjectSelf, nil
	case "dnattr":
		return SubjectDNAttr, nil
	case "group":
		return SubjectGroup, nil
	case "role":
		return SubjectRole, nil
	case "set":
		return SubjectSet, nil
	case "set-ref":
		return SubjectSetRef, nil
	default:
		return 0, ErrMalformed
	}
}

func subjectTypeString(t SubjectType) string {
	switch t {
	case SubjectPublic:
		return "public"
	case SubjectUsers:
		return "users"
	case SubjectAccessID:
		return "access-id"
	case SubjectSubtree:
		return "subtree"
	case SubjectOnelevel:
		return "onelevel"
	case SubjectChildren:
		return "children"
	case SubjectSelf:
		return "self"
	case SubjectDNAttr:
		return "dnattr"
	case SubjectGroup:
		return "group"
	case SubjectRole:
		return "role"
	case SubjectSet:
		return "set"
	default:
		return "set-ref"
	}
}

func parsePermissions(s string) ([]Permission, error) {
	var out []Permission
	for _, elem := range strings.Split(s, "$") {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		parts := strings.Split(elem, ";")
		if len(parts) < 3 || len(parts)%2 != 1 {
			return nil, ErrMalformed
		}
		var action Action
		switch parts[0] {
		case "grant":
			action = ActionGrant
		case "deny":
			action = ActionDeny
		default:
			return nil, ErrMalformed
		}
		var rights priv.Mask
		var attrs []string
		for i := 1; i+1 < len(parts); i += 2 {
			rights |= parseRights(parts[i])
			attrs = append(attrs, parts[i+1])
		}
		out = append(out, Permission{Action: action, Rights: rights, Attrs: attrs})
	}
	if len(out) == 0 {
		return nil, ErrMalformed
	}
	return out, nil
}

func rightsString(m priv.Mask) string {
	var b strings.Builder
	if m.Allows(priv.LevelCompare) {
		b.WriteByte('c')
	}
	if m.Allows(priv.LevelSearch) {
		b.WriteByte('s')
	}
	if m.Allows(priv.LevelRead) {
		b.WriteByte('r')
	}
	if m.Bits()&priv.Write != 0 {
		b.WriteByte('w')
	}
	if m.Allows(priv.LevelAuth) {
		b.WriteByte('x')
	}
	return b.String()
}

func parseRights(s string) priv.Mask {
	var m priv.Mask
	for _, c := range s {
		switch c {
		case 'c':
			m |= priv.FromLevel(priv.LevelCompare)
		case 's':
			m |= priv.FromLevel(priv.LevelSearch)
		case 'r':
			m |= priv.FromLevel(priv.LevelRead)
		case 'w':
			m |= priv.Write
		case 'x':
			m |= priv.FromLevel(priv.LevelAuth)
		}
	}
	return m
}

// Decision is the tentative (grant, deny) mask pair computed from one
// ACI's permissions list for a requested attribute, before the
// subject test gates whether it applies at all.
type Decision struct {
	Grant priv.Mask
	Deny  priv.Mask
}

func computeMasks(a *ACI, attr string) Decision {
	var d Decision
	for _, p := range a.Permissions {
		if !p.AppliesTo(attr) {
			continue
		}
		if p.Action == ActionGrant {
			d.Grant |= p.Rights
		} else {
			d.Deny |= p.Rights
		}
	}
	return d
}

// GroupDefault/RoleDefault are the reference implementation's default
// object class and membership attribute when a group/role subject body
// does not override them with the `dn/objectClass/attrName` form.
const (
	GroupDefaultClass = "groupOfNames"
	GroupDefaultAttr  = "member"
	RoleDefaultClass  = "organizationalRole"
	RoleDefaultAttr   = "roleOccupant"
)

func splitOverride(body, defClass, defAttr string) (dnPart, class, attr string) {
	parts := strings.SplitN(body, "/", 3)
	dnPart = parts[0]
	class, attr = defClass, defAttr
	if len(parts) > 1 && parts[1] != "" {
		class = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		attr = parts[2]
	}
	return dnPart, class, attr
}

// matchSubject tests a's subject-type/body against the request in ctx,
// with targetDN being the entry the ACI was found on (the subtree root
// for an ancestor-walk hit).
func matchSubject(a *ACI, ctx *reqctx.Context, targetDN string) bool {
	bound := ctx.Identity.BoundDN
	switch a.SubjectType {
	case SubjectPublic:
		return true
	case SubjectUsers:
		return bound != ""
	case SubjectAccessID:
		return dn.Equal(dn.MustNormalize(a.SubjectBody), bound)
	case SubjectSubtree:
		return dn.IsSuffix(dn.MustNormalize(a.SubjectBody), bound)
	case SubjectOnelevel:
		return dn.IsOneLevelBelow(dn.MustNormalize(a.SubjectBody), bound)
	case SubjectChildren:
		return dn.IsStrictDescendant(dn.MustNormalize(a.SubjectBody), bound)
	case SubjectSelf:
		return dn.Equal(targetDN, bound)
	case SubjectDNAttr:
		if ctx.Entry == nil {
			return false
		}
		for _, v := range ctx.Entry.Attributes[ctx.Schema.ResolveName(a.SubjectBody)] {
			if dn.Equal(v, bound) {
				return true
			}
		}
		return false
	case SubjectGroup:
		gdn, class, attr := splitOverride(a.SubjectBody, GroupDefaultClass, GroupDefaultAttr)
		return matchGroupOrRole(ctx, gdn, class, attr)
	case SubjectRole:
		gdn, class, attr := splitOverride(a.SubjectBody, RoleDefaultClass, RoleDefaultAttr)
		return matchGroupOrRole(ctx, gdn, class, attr)
	case SubjectSet, SubjectSetRef:
		if ctx.Sets == nil {
			return false
		}
		values, err := ctx.Sets.Gather(ctx.Ctx, a.SubjectBody, ctx.Entry)
		if err != nil {
			return false
		}
		for _, v := range values {
			if dn.Equal(v, bound) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchGroupOrRole(ctx *reqctx.Context, groupDN, _, attr string) bool {
	if ctx.Groups == nil {
		return false
	}
	ngdn := dn.MustNormalize(groupDN)
	if cached, hit := ctx.State.GroupMembership(ngdn, ctx.Identity.BoundDN, attr); hit {
		return cached
	}
	ok, err := ctx.Groups.IsMember(ctx.Ctx, ngdn, ctx.Identity.BoundDN, attr)
	if err != nil {
		ok = false
	}
	ctx.State.SetGroupMembership(ngdn, ctx.Identity.BoundDN, attr, ok)
	return ok
}

// EvaluateEntry evaluates every ACI value found on the target entry
// itself (ScopeEntry/ScopeSubtree) for the requested attribute,
// accumulating grant/deny across all that match scope and subject.
func EvaluateEntry(ctx *reqctx.Context, values []string, attr string) Decision {
	return evaluate(ctx, values, attr, WalkEntry, ctx.Request.EntryDN)
}

// EvaluateAncestor is the same as EvaluateEntry but for an ancestor's
// ACI values consulted during the walk-up (ScopeChildren/ScopeSubtree).
func EvaluateAncestor(ctx *reqctx.Context, values []string, attr, ancestorDN string) Decision {
	return evaluate(ctx, values, attr, WalkChildren, ancestorDN)
}

func evaluate(ctx *reqctx.Context, values []string, attr string, scope WalkScope, subjectTargetDN string) Decision {
	var total Decision
	for _, raw := range values {
		parsed, err := Parse(raw)
		if err != nil {
			continue
		}
		if !parsed.Scope.Subsumes(scope) {
			continue
		}
		if !matchSubject(parsed, ctx, subjectTargetDN) {
			continue
		}
		d := computeMasks(parsed, attr)
		total.Grant |= d.Grant
		total.Deny |= d.Deny
	}
	return total
}

// Combine ANDs an ACI decision with the clause's own declared
// privilege mask and produces the resulting additive/subtractive
// effect, or (zero, false) when the clause should be skipped (both
// grant and deny empty after the AND), per spec.md §4.5.
func Combine(clauseMask priv.Mask, d Decision) (kindMask priv.Mask, additive bool, ok bool) {
	grant := d.Grant.Bits() & clauseMask.Bits()
	deny := d.Deny.Bits() & clauseMask.Bits()
	switch {
	case grant == 0 && deny == 0:
		return 0, false, false
	case deny == 0:
		return grant, true, true
	case grant == 0:
		return deny, false, true
	default:
		return grant &^ deny, true, true
	}
}
