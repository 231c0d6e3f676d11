// Package pattern implements the access control engine's Pattern
// Matcher (spec.md §4.1): backreference expansion into a bounded
// buffer, DN structural style matching, compiled-regex matching with a
// bounded cache, and IP/PATH peer predicates.
package pattern

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/smarzola/ldapacl/internal/access/dn"
)

// BufSize bounds backreference expansion output, matching the
// reference implementation's fixed scratch buffer.
const BufSize = 1024

// ErrBufferOverflow is returned when expansion would exceed BufSize.
var ErrBufferOverflow = errors.New("pattern: expansion exceeds buffer size")

// Style names the structural DN matching mode a rule's pattern was
// written against, per spec.md §3 "Style".
type Style int

const (
	StyleRegex Style = iota
	StyleBase
	StyleOne
	StyleSubtree
	StyleChildren
	StyleLevel
	StyleAnonymous
	StyleUsers
	StyleSelf
	StyleIP
	StylePath
	StyleExpand
)

// regexCache is a process-wide bounded cache of compiled patterns,
// shared across every operation for the server's lifetime (§9) instead
// of recompiling or growing an unbounded map per call.
var regexCache *ristretto.Cache[string, *regexp.Regexp]

func init() {
	c, err := ristretto.NewCache(&ristretto.Config[string, *regexp.Regexp]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	regexCache = c
}

// CompileRegex compiles expr, reusing a cached compilation when one
// exists for the identical expression string.
func CompileRegex(expr string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(expr); ok {
		return re, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	regexCache.Set(expr, re, 1)
	regexCache.Wait()
	return re, nil
}

// Expand substitutes $N and ${N} backreferences in tmpl with the
// matching groups captured in matches (as returned by
// regexp.Regexp.FindStringSubmatch), failing closed with
// ErrBufferOverflow if the result would exceed BufSize bytes. $0
// refers to the whole match.
func Expand(tmpl string, matches []string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '$' || i == len(tmpl)-1 {
			if b.Len() >= BufSize {
				return "", ErrBufferOverflow
			}
			b.WriteByte(c)
			continue
		}
		rest := tmpl[i+1:]
		idx, width, ok := parseBackref(rest)
		if !ok {
			if b.Len() >= BufSize {
				return "", ErrBufferOverflow
			}
			b.WriteByte(c)
			continue
		}
		if idx < len(matches) {
			if b.Len()+len(matches[idx]) > BufSize {
				return "", ErrBufferOverflow
			}
			b.WriteString(matches[idx])
		}
		i += width
	}
	if b.Len() > BufSize {
		return "", ErrBufferOverflow
	}
	return b.String(), nil
}

// parseBackref parses a $N or ${N} reference at the start of s
// (s excludes the leading '$'). It returns the group index, the number
// of bytes of s consumed, and whether a reference was found.
func parseBackref(s string) (idx int, width int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	if s[0] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0, false
		}
		n, err := strconv.Atoi(s[1:end])
		if err != nil {
			return 0, 0, false
		}
		return n, end + 1, true
	}
	j := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, 0, false
	}
	n, err := strconv.Atoi(s[:j])
	if err != nil {
		return 0, 0, false
	}
	return n, j, true
}

// MatchDN reports whether targetDN matches pat under the given
// structural style, with level used only by StyleLevel. Styles not
// handled below, StyleSelf among them, never match.
func MatchDN(style Style, pat, targetDN string, level int) bool {
	switch style {
	case StyleBase:
		return dn.Equal(pat, targetDN)
	case StyleOne:
		return dn.IsOneLevelBelow(pat, targetDN)
	case StyleSubtree:
		return dn.IsSuffix(pat, targetDN)
	case StyleChildren:
		return dn.IsStrictDescendant(pat, targetDN)
	case StyleLevel:
		return dn.IsExactlyNLevelsBelow(pat, targetDN, level)
	case StyleRegex:
		re, err := CompileRegex(pat)
		if err != nil {
			return false
		}
		return re.MatchString(targetDN)
	case StyleAnonymous:
		return targetDN == ""
	case StyleUsers:
		return targetDN != ""
	default:
		return false
	}
}

// MatchIP reports whether peer, a "host:port" or bare address, falls
// within one of the given CIDR or bare-address patterns (IP style).
// A pattern may itself carry a ":port" suffix, in which case the
// peer's port must equal it; a pattern with no port matches any port.
func MatchIP(patterns []string, peer string) bool {
	host, port := splitHostPort(peer)
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, p := range patterns {
		addr, wantPort := splitHostPort(p)
		if wantPort != "" && wantPort != port {
			continue
		}
		if strings.Contains(addr, "/") {
			_, cidr, err := net.ParseCIDR(addr)
			if err == nil && cidr.Contains(ip) {
				return true
			}
			continue
		}
		if pip := net.ParseIP(addr); pip != nil && pip.Equal(ip) {
			return true
		}
	}
	return false
}

// splitHostPort separates an optional trailing ":port" from addr,
// matching the on-wire "IP=a.b.c.d:port" peer-name shape. Inputs with
// no parseable port (bare addresses, unbracketed IPv6) pass through
// unchanged.
func splitHostPort(addr string) (host, port string) {
	if h, p, err := net.SplitHostPort(addr); err == nil {
		return h, p
	}
	return addr, ""
}

// MatchPath reports whether peerPath equals one of the given socket
// path patterns (PATH style, for local-domain-socket binds).
func MatchPath(patterns []string, peerPath string) bool {
	for _, p := range patterns {
		if p == peerPath {
			return true
		}
	}
	return false
}
