package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestACLAdapterEntryFetchesExisting(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	adapter := NewACLAdapter(st)
	entry, err := adapter.Entry(ctx, "uid=jdoe,ou=users,dc=test,dc=com")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "uid=jdoe,ou=users,dc=test,dc=com", entry.DN)
}

func TestACLAdapterEntryMissingIsNilNotError(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	adapter := NewACLAdapter(st)
	entry, err := adapter.Entry(ctx, "uid=ghost,ou=users,dc=test,dc=com")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestACLAdapterAncestorsNearestFirstStopsAtMissing(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	adapter := NewACLAdapter(st)
	ancestors, err := adapter.Ancestors(ctx, "uid=jdoe,ou=users,dc=test,dc=com")
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, "ou=users,dc=test,dc=com", ancestors[0].DN)
	assert.Equal(t, "dc=test,dc=com", ancestors[1].DN)
}

func TestACLAdapterIsMemberViaDefaultMemberAttr(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	adapter := NewACLAdapter(st)
	ok, err := adapter.IsMember(ctx, "cn=admins,ou=groups,dc=test,dc=com", "uid=jdoe,ou=users,dc=test,dc=com", "member")
	require.NoError(t, err)
	assert.True(t, ok)

	ok2, err := adapter.IsMember(ctx, "cn=admins,ou=groups,dc=test,dc=com", "uid=jsmith,ou=users,dc=test,dc=com", "member")
	require.NoError(t, err)
	assert.False(t, ok2)
}

func TestACLAdapterIsMemberWithNonMemberAttrFallsBackToEntryValues(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	adapter := NewACLAdapter(st)
	ok, err := adapter.IsMember(ctx, "cn=developers,ou=groups,dc=test,dc=com", "uid=bob,ou=users,dc=test,dc=com", "memberUid")
	require.NoError(t, err)
	assert.False(t, ok)
}
