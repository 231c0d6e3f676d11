// Package who implements the Who-Clause Evaluator (spec.md §4.3): a
// conjunction of independently optional predicates over the
// requester, connection, and target entry, with one constructor per
// dimension and an "and"-combinator at the clause level, per the
// design note in spec.md §9.
package who

import (
	"strconv"
	"strings"

	"github.com/smarzola/ldapacl/internal/access/dn"
	"github.com/smarzola/ldapacl/internal/access/pattern"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
)

// Dimension is one predicate over a Context. It returns whether the
// dimension matched; a false return always means "skip this clause",
// never an error the caller must inspect — every internal failure is
// coerced to mismatch at this boundary (spec.md §9).
type Dimension func(ctx *reqctx.Context) bool

// Access is a who clause: the conjunction of its configured
// dimensions. An empty Access matches any requester, the unit of the
// "and"-combinator.
type Access struct {
	dims []Dimension
}

// New builds a clause from zero or more dimensions.
func New(dims ...Dimension) Access {
	return Access{dims: dims}
}

// Matches reports whether every configured dimension of a passes.
func (a Access) Matches(ctx *reqctx.Context) bool {
	for _, d := range a.dims {
		if !d(ctx) {
			return false
		}
	}
	return true
}

// And appends further dimensions, returning a new clause.
func (a Access) And(dims ...Dimension) Access {
	out := make([]Dimension, 0, len(a.dims)+len(dims))
	out = append(out, a.dims...)
	out = append(out, dims...)
	return Access{dims: out}
}

func expand(ctx *reqctx.Context, tmpl string, expandFlag bool) (string, bool) {
	if !expandFlag {
		return tmpl, true
	}
	out, err := pattern.Expand(tmpl, ctx.EntryMatches)
	if err != nil {
		return "", false
	}
	return out, true
}

// DNPattern builds the operation-DN dimension: ANONYMOUS, USERS,
// SELF(level), REGEX, and the structural styles, per spec.md §4.3.
func DNPattern(style pattern.Style, pat string, level int, expandFlag bool) Dimension {
	return func(ctx *reqctx.Context) bool {
		return matchIdentityDN(style, pat, level, expandFlag, ctx, ctx.Identity.BoundDN)
	}
}

// RealDN is the same contract as DNPattern but evaluated against the
// connection's original bound identity rather than any proxy-assumed
// DN. This engine does not model proxy authorization, so the real DN
// and the operation DN are the same value; the dimension is provided
// so callers can express a "by realdn=..." clause explicitly.
func RealDN(style pattern.Style, pat string, level int, expandFlag bool) Dimension {
	return func(ctx *reqctx.Context) bool {
		return matchIdentityDN(style, pat, level, expandFlag, ctx, ctx.Identity.BoundDN)
	}
}

func matchIdentityDN(style pattern.Style, pat string, level int, expandFlag bool, ctx *reqctx.Context, opDN string) bool {
	switch style {
	case pattern.StyleAnonymous:
		return opDN == ""
	case pattern.StyleUsers:
		return opDN != ""
	case pattern.StyleSelf:
		if level >= 0 {
			walked := opDN
			for i := 0; i < level; i++ {
				walked = dn.Parent(walked)
				if walked == "" && i != level-1 {
					return false
				}
			}
			return dn.Equal(walked, ctx.Request.EntryDN)
		}
		walked := ctx.Request.EntryDN
		for i := 0; i < -level; i++ {
			walked = dn.Parent(walked)
			if walked == "" && i != -level-1 {
				return false
			}
		}
		return dn.Equal(walked, opDN)
	case pattern.StyleRegex:
		expanded, ok := expand(ctx, pat, expandFlag)
		if !ok {
			return false
		}
		re, err := pattern.CompileRegex(expanded)
		if err != nil {
			return false
		}
		return re.MatchString(opDN)
	default:
		p := pat
		if expandFlag {
			exp, ok := expand(ctx, pat, expandFlag)
			if !ok {
				return false
			}
			p = exp
		}
		np := dn.MustNormalize(p)
		if style == pattern.StyleLevel {
			return dn.IsExactlyNLevelsBelow(np, opDN, level)
		}
		if !pattern.MatchDN(style, np, opDN, level) {
			return dn.Equal(np, opDN)
		}
		return true
	}
}

// NetworkKind distinguishes the four connection-context string
// dimensions spec.md §4.3 groups together.
type NetworkKind int

const (
	NetSocketURL NetworkKind = iota
	NetPeerDomain
	NetPeerName
	NetSocketName
)

// Network builds a socket-URL / peer-domain / peer-name / socket-name
// dimension. value is the configured pattern; actual is a function
// extracting the corresponding live connection-context string, kept
// as a parameter so the caller supplies it from its own identity
// context shape.
func Network(kind NetworkKind, style pattern.Style, value string, actual func(ctx *reqctx.Context) string) Dimension {
	return func(ctx *reqctx.Context) bool {
		if value == "*" {
			return true
		}
		live := actual(ctx)
		if live == "" {
			return false
		}
		switch style {
		case pattern.StyleRegex:
			re, err := pattern.CompileRegex(value)
			if err != nil {
				return false
			}
			return re.MatchString(live)
		case pattern.StyleExpand:
			expanded, ok := expand(ctx, value, true)
			if !ok {
				return false
			}
			return strings.EqualFold(expanded, live)
		case pattern.StyleSubtree:
			if kind != NetPeerDomain {
				return false
			}
			return domainSubtree(value, live)
		case pattern.StyleIP:
			return matchNetworkIP(value, live)
		case pattern.StylePath:
			return matchNetworkPath(value, live)
		default:
			return strings.EqualFold(value, live)
		}
	}
}

func domainSubtree(pat, live string) bool {
	plabels := strings.Split(strings.ToLower(strings.Trim(pat, ".")), ".")
	llabels := strings.Split(strings.ToLower(strings.Trim(live, ".")), ".")
	if len(llabels) < len(plabels) {
		return false
	}
	off := len(llabels) - len(plabels)
	for i, l := range plabels {
		if llabels[off+i] != l {
			return false
		}
	}
	return true
}

func matchNetworkIP(pat, live string) bool {
	const prefix = "IP="
	if !strings.HasPrefix(live, prefix) {
		return false
	}
	addr := strings.TrimPrefix(live, prefix)
	return pattern.MatchIP([]string{strings.TrimPrefix(pat, prefix)}, addr)
}

func matchNetworkPath(pat, live string) bool {
	const prefix = "PATH="
	if !strings.HasPrefix(live, prefix) {
		return false
	}
	p := strings.TrimPrefix(live, prefix)
	return pattern.MatchPath([]string{strings.TrimPrefix(pat, prefix)}, p)
}

// DNAttr builds the DN-attribute-of-entry dimension: the requester's
// DN must appear among attr's values on the target entry. With self
// set, the clause instead passes only when the request asserts a value
// equal to the requester's DN, whether or not the requester's DN is
// among attr's values.
func DNAttr(attr string, self bool) Dimension {
	return func(ctx *reqctx.Context) bool {
		if ctx.Entry == nil {
			return false
		}
		vals := ctx.Entry.Attributes[ctx.Schema.ResolveName(attr)]
		for _, v := range vals {
			if dn.Equal(v, ctx.Identity.BoundDN) {
				if !self {
					return true
				}
				if ctx.Request.HasValue() {
					return dn.Equal(*ctx.Request.Value, ctx.Identity.BoundDN)
				}
				return false
			}
		}
		if self && ctx.Request.HasValue() {
			return dn.Equal(*ctx.Request.Value, ctx.Identity.BoundDN)
		}
		return false
	}
}

// Group builds the group-membership dimension. groupDNPattern may
// contain $N backreferences (expandFlag controls whether to expand
// them); membership is delegated to the GroupResolver collaborator.
func Group(groupDNPattern, memberAttr string, expandFlag bool) Dimension {
	return func(ctx *reqctx.Context) bool {
		if ctx.Groups == nil {
			return false
		}
		gdn, ok := expand(ctx, groupDNPattern, expandFlag)
		if !ok {
			return false
		}
		ngdn, err := dn.Normalize(gdn)
		if err != nil {
			return false
		}
		if cached, hit := ctx.State.GroupMembership(ngdn, ctx.Identity.BoundDN, memberAttr); hit {
			return cached
		}
		ok2, err := ctx.Groups.IsMember(ctx.Ctx, ngdn, ctx.Identity.BoundDN, memberAttr)
		if err != nil {
			ok2 = false
		}
		ctx.State.SetGroupMembership(ngdn, ctx.Identity.BoundDN, memberAttr, ok2)
		return ok2
	}
}

// Set builds the set-expression dimension: ref is resolved and
// expanded (if expandFlag) by the SetGatherer collaborator, and the
// requester's DN must appear in the resulting value set.
func Set(ref string, expandFlag bool) Dimension {
	return func(ctx *reqctx.Context) bool {
		if ctx.Sets == nil {
			return false
		}
		expanded, ok := expand(ctx, ref, expandFlag)
		if !ok {
			return false
		}
		if cached, hit := ctx.State.SetValues(expanded); hit {
			return containsFold(cached, ctx.Identity.BoundDN)
		}
		values, err := ctx.Sets.Gather(ctx.Ctx, expanded, ctx.Entry)
		if err != nil {
			values = nil
		}
		ctx.State.SetSetValues(expanded, values)
		return containsFold(values, ctx.Identity.BoundDN)
	}
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if dn.Equal(v, target) {
			return true
		}
	}
	return false
}

// SecurityFactor builds the ssf dimension: every configured floor
// (zero means "not configured") must be at or below the corresponding
// live factor.
func SecurityFactor(overall, transport, tls, sasl int) Dimension {
	return func(ctx *reqctx.Context) bool {
		s := ctx.Identity.SSF
		if overall > 0 && s.Overall < overall {
			return false
		}
		if transport > 0 && s.Transport < transport {
			return false
		}
		if tls > 0 && s.TLS < tls {
			return false
		}
		if sasl > 0 && s.SASL < sasl {
			return false
		}
		return true
	}
}

// ParseSelfLevel parses the signed integer argument of a SELF(level)
// style, defaulting to 0 ("exact self") on a malformed string.
func ParseSelfLevel(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
