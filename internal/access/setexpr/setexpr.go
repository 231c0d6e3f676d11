// Package setexpr implements the Set predicate's side module (spec.md
// §4.3 "Set", §6 "Set matcher"): resolving LDAP-URL-shaped and
// attr@entry-shaped set references into the operand value list a
// who-clause or ACI "set"/"set-ref" subject compares the requester's
// DN against.
package setexpr

import (
	"context"
	"fmt"
	"strings"

	dirsyn "github.com/JesseCoretta/go-dirsyn"

	"github.com/smarzola/ldapacl/internal/access/spi"
)

// Gatherer resolves set expressions against a directory backed by an
// EntryStore, implementing spi.SetGatherer.
type Gatherer struct {
	Store spi.EntryStore
}

// NewGatherer builds a Gatherer backed by store.
func NewGatherer(store spi.EntryStore) *Gatherer {
	return &Gatherer{Store: store}
}

// Gather resolves ref, an LDAP-URL-shaped set reference
// ("ldap:///base?attr?scope?filter") or an "attr@entry" shorthand
// naming an attribute of an entry (the current subject entry when the
// entry part is empty or "this", otherwise the entry with that DN
// fetched from the store), into its value list.
func (g *Gatherer) Gather(ctx context.Context, ref string, subject *spi.Entry) ([]string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if strings.Contains(ref, "@") && !strings.HasPrefix(ref, "ldap://") && !strings.HasPrefix(ref, "ldaps://") {
		return g.gatherAttrAt(ctx, ref, subject)
	}
	return g.gatherURL(ctx, ref)
}

func (g *Gatherer) gatherAttrAt(ctx context.Context, ref string, subject *spi.Entry) ([]string, error) {
	parts := strings.SplitN(ref, "@", 2)
	attr, entryRef := parts[0], parts[1]
	var entry *spi.Entry
	if entryRef == "" || strings.EqualFold(entryRef, "this") {
		entry = subject
	} else {
		e, err := g.Store.Entry(ctx, entryRef)
		if err != nil {
			return nil, err
		}
		entry = e
	}
	if entry == nil {
		return nil, nil
	}
	return entry.Attributes[attr], nil
}

func (g *Gatherer) gatherURL(ctx context.Context, ref string) ([]string, error) {
	var r dirsyn.RFC4516
	u, err := r.URL(ref)
	if err != nil {
		return nil, fmt.Errorf("setexpr: parse url %q: %w", ref, err)
	}

	base := u.DN.String()
	entry, err := g.Store.Entry(ctx, base)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	attr := "dn"
	if len(u.Attributes) > 0 {
		attr = u.Attributes[0]
	}
	return attrOrDN(entry, attr), nil
}

func attrOrDN(entry *spi.Entry, attr string) []string {
	if strings.EqualFold(attr, "dn") {
		return []string{entry.DN}
	}
	return entry.Attributes[attr]
}
