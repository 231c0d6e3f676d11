package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/spi"
)

func TestResolverResolveNameLowercasesAndAliases(t *testing.T) {
	r := NewResolver()
	r.Aliases["userpwd"] = "userPassword"
	assert.Equal(t, "userPassword", r.ResolveName("userPwd"))
	assert.Equal(t, "cn", r.ResolveName("CN"))
}

func TestResolverIsNoUserModification(t *testing.T) {
	r := NewResolver()
	assert.True(t, r.IsNoUserModification("entryUUID"))
	assert.True(t, r.IsNoUserModification("createTimestamp"))
	assert.False(t, r.IsNoUserModification("cn"))
}

func TestResolverIsInList(t *testing.T) {
	r := NewResolver()
	assert.True(t, r.IsInList("CN", []string{"cn", "sn"}))
	assert.False(t, r.IsInList("mail", []string{"cn", "sn"}))
}

func TestResolverMatchValueCaseInsensitiveByDefault(t *testing.T) {
	r := NewResolver()
	assert.True(t, r.MatchValue("John Doe", "john doe", "ci"))
	assert.False(t, r.MatchValue("John Doe", "john doe", "cs"))
	assert.True(t, r.MatchValue("John Doe", "John Doe", "cs"))
}

func TestResolverMatchValues(t *testing.T) {
	r := NewResolver()
	entry := &spi.Entry{Attributes: map[string][]string{"mail": {"jdoe@example.com"}}}
	assert.True(t, r.MatchValues(entry, "mail", []string{"JDOE@example.com"}))
	assert.False(t, r.MatchValues(entry, "mail", []string{"other@example.com"}))
	assert.False(t, r.MatchValues(nil, "mail", []string{"jdoe@example.com"}))
}

func TestResolverTestFilter(t *testing.T) {
	r := NewResolver()
	entry := &spi.Entry{DN: "uid=jdoe,dc=example,dc=com", Attributes: map[string][]string{
		"objectClass": {"inetOrgPerson"},
		"uid":         {"jdoe"},
	}}
	ok, err := r.TestFilter(entry, "(uid=jdoe)")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok2, err2 := r.TestFilter(entry, "(uid=asmith)")
	assert.NoError(t, err2)
	assert.False(t, ok2)
}

func TestResolverTestFilterNilEntry(t *testing.T) {
	r := NewResolver()
	ok, err := r.TestFilter(nil, "(uid=jdoe)")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestResolverTestEntryFilterFailsClosedOnParseError(t *testing.T) {
	r := NewResolver()
	ctx := &reqctx.Context{Entry: &spi.Entry{DN: "dc=example,dc=com"}}
	assert.False(t, r.TestEntryFilter(ctx, "(("))
}

func TestResolverTestEntryFilterMatches(t *testing.T) {
	r := NewResolver()
	ctx := &reqctx.Context{Entry: &spi.Entry{
		DN:         "uid=jdoe,dc=example,dc=com",
		Attributes: map[string][]string{"uid": {"jdoe"}},
	}}
	assert.True(t, r.TestEntryFilter(ctx, "(uid=jdoe)"))
}
