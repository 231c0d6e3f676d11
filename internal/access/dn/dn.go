// Package dn provides the normalized distinguished-name comparisons the
// access control engine's pattern styles (spec.md §3 "Style") depend on:
// exact equality, suffix/subtree containment, strict one-level and
// n-level descent, and parent/RDN-count accessors.
//
// Parsing and canonicalization are delegated to go-dirsyn's RFC 4514
// implementation; the structural rules a directory-server ACL style
// needs on top of generic DN equality (separator-byte boundaries, exact
// RDN-count descent) are implemented here.
package dn

import (
	"errors"
	"strings"

	dirsyn "github.com/JesseCoretta/go-dirsyn"
)

// ErrNormalize is returned when a raw string is not a well-formed DN.
var ErrNormalize = errors.New("dn: normalization failed")

var rfc4514 dirsyn.RFC4514

// Normalize parses and re-renders a DN string into its canonical form.
// The empty string normalizes to itself (spec.md treats the empty
// operation DN as anonymous).
func Normalize(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	parsed, err := rfc4514.DistinguishedName(raw)
	if err != nil || parsed == nil {
		return "", ErrNormalize
	}
	return parsed.String(), nil
}

// MustNormalize normalizes raw, returning the empty string on failure.
// Used by call sites that already fail closed on a mismatch and would
// otherwise have to thread an error through a boolean-returning style
// check.
func MustNormalize(raw string) string {
	n, err := Normalize(raw)
	if err != nil {
		return ""
	}
	return n
}

func parse(raw string) (*dirsyn.DistinguishedName, bool) {
	if strings.TrimSpace(raw) == "" {
		return &dirsyn.DistinguishedName{}, true
	}
	parsed, err := rfc4514.DistinguishedName(raw)
	if err != nil || parsed == nil {
		return nil, false
	}
	return parsed, true
}

// Equal reports whether two (already-normalized or raw) DN strings
// denote the same name. BASE style equality.
func Equal(a, b string) bool {
	da, ok1 := parse(a)
	db, ok2 := parse(b)
	if !ok1 || !ok2 {
		return false
	}
	return da.Equal(db)
}

// IsSuffix reports whether sup is sub or a descendant of sub, i.e. sub
// is a suffix of sup when both are read as a sequence of RDNs trailing
// toward the root. This is SUBTREE style containment.
func IsSuffix(sub, sup string) bool {
	dsub, ok1 := parse(sub)
	dsup, ok2 := parse(sup)
	if !ok1 || !ok2 {
		return false
	}
	if dsub.Equal(dsup) {
		return true
	}
	return dsub.AncestorOf(dsup)
}

// IsStrictDescendant reports whether sup is a proper descendant of sub
// (CHILDREN style: excludes sub itself).
func IsStrictDescendant(sub, sup string) bool {
	dsub, ok1 := parse(sub)
	dsup, ok2 := parse(sup)
	if !ok1 || !ok2 {
		return false
	}
	return dsub.AncestorOf(dsup)
}

// IsOneLevelBelow reports whether sup has exactly one RDN more than sub
// and is a descendant of it (ONE style).
func IsOneLevelBelow(sub, sup string) bool {
	return IsExactlyNLevelsBelow(sub, sup, 1)
}

// IsExactlyNLevelsBelow reports whether sup descends from sub by
// exactly n RDNs (LEVEL(n) style). n <= 0 degenerates to BASE
// equality, which this function checks itself.
func IsExactlyNLevelsBelow(sub, sup string, n int) bool {
	if n <= 0 {
		return Equal(sub, sup)
	}
	dsub, ok1 := parse(sub)
	dsup, ok2 := parse(sup)
	if !ok1 || !ok2 {
		return false
	}
	if len(dsup.RDNs)-len(dsub.RDNs) != n {
		return false
	}
	return dsub.AncestorOf(dsup)
}

// Parent returns the normalized parent DN of ndn (the DN with its
// leading, most-specific RDN removed), or "" if ndn has zero or one
// RDN.
func Parent(ndn string) string {
	d, ok := parse(ndn)
	if !ok || len(d.RDNs) <= 1 {
		return ""
	}
	parent := &dirsyn.DistinguishedName{RDNs: d.RDNs[1:]}
	return parent.String()
}

// RDNLen returns the number of RDNs in ndn.
func RDNLen(ndn string) int {
	d, ok := parse(ndn)
	if !ok {
		return 0
	}
	return len(d.RDNs)
}

// Ancestors yields every ancestor of ndn, nearest first, walking up to
// (and including) a single-RDN suffix. It never yields ndn itself.
func Ancestors(ndn string) []string {
	var out []string
	cur := ndn
	for {
		p := Parent(cur)
		if p == "" {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}
