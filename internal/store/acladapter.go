package store

import (
	"context"
	"strings"

	"github.com/smarzola/ldapacl/internal/access/dn"
	"github.com/smarzola/ldapacl/internal/access/spi"
	"github.com/smarzola/ldapacl/internal/models"
)

// ACLAdapter adapts a SQLiteStore to the access control engine's
// EntryStore and GroupResolver collaborator interfaces (spec.md §6).
// It never mutates state and translates this package's models.Entry
// into the engine's minimal spi.Entry view.
type ACLAdapter struct {
	store *SQLiteStore
}

// NewACLAdapter wraps store for use by an access.Engine.
func NewACLAdapter(store *SQLiteStore) *ACLAdapter {
	return &ACLAdapter{store: store}
}

func toSPIEntry(e *models.Entry) *spi.Entry {
	if e == nil {
		return nil
	}
	return &spi.Entry{DN: e.DN, Attributes: e.Attributes}
}

// Entry fetches the entry named by ndn.
func (a *ACLAdapter) Entry(ctx context.Context, ndn string) (*spi.Entry, error) {
	e, err := a.store.GetEntry(ctx, ndn)
	if err != nil {
		return nil, err
	}
	return toSPIEntry(e), nil
}

// Ancestors returns ndn's ancestor entries, nearest first, for the ACI
// engine's walk-up, stopping at the first missing ancestor.
func (a *ACLAdapter) Ancestors(ctx context.Context, ndn string) ([]*spi.Entry, error) {
	var out []*spi.Entry
	for _, anc := range dn.Ancestors(ndn) {
		e, err := a.store.GetEntry(ctx, anc)
		if err != nil {
			return out, err
		}
		if e == nil {
			break
		}
		out = append(out, toSPIEntry(e))
	}
	return out, nil
}

// IsMember reports whether memberDN is a member of groupDN. The
// "member" attribute is resolved via the recursive group-membership
// probe already maintained by the store; any other membership
// attribute is resolved directly against the group entry's values,
// since group_members only tracks the groupOfNames "member" edge.
func (a *ACLAdapter) IsMember(ctx context.Context, groupDN, memberDN, memberAttr string) (bool, error) {
	if memberAttr == "" || strings.EqualFold(memberAttr, "member") {
		return a.store.IsMemberOf(ctx, memberDN, groupDN)
	}
	entry, err := a.store.GetEntry(ctx, groupDN)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	for _, v := range entry.GetAttributes(memberAttr) {
		if dn.Equal(v, memberDN) {
			return true, nil
		}
	}
	return false, nil
}
