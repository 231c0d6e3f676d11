package aci

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarzola/ldapacl/internal/access/cache"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/spi"
)

func TestParseWellFormed(t *testing.T) {
	raw := "1.2.3#entry#grant;rs;[all]#public#"
	a, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, "1.2.3", a.OID)
	assert.Equal(t, ScopeEntry, a.Scope)
	assert.Equal(t, SubjectPublic, a.SubjectType)
	assert.Len(t, a.Permissions, 1)
	assert.Equal(t, ActionGrant, a.Permissions[0].Action)
	assert.True(t, a.Permissions[0].Rights.Allows(priv.LevelRead))
}

func TestParseSubjectBodyKeepsEmbeddedHash(t *testing.T) {
	raw := "1.2.3#subtree#grant;r;[all]#access-id#uid=jdoe,ou=people,dc=example,dc=com#extra"
	a, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, "uid=jdoe,ou=people,dc=example,dc=com#extra", a.SubjectBody)
}

func TestParseRejectsFewerThanFourFields(t *testing.T) {
	_, err := Parse("1.2.3#entry#grant;r;[all]#public#")
	assert.NoError(t, err)

	_, err2 := Parse("1.2.3#entry#grant;r;[all]")
	assert.ErrorIs(t, err2, ErrMalformed)
}

func TestParseRejectsBadScope(t *testing.T) {
	_, err := Parse("1.2.3#bogus#grant;r;[all]#public#")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseRejectsBadPermissionAction(t *testing.T) {
	_, err := Parse("1.2.3#entry#allow;r;[all]#public#")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestStringRoundTrip(t *testing.T) {
	raw := "1.2.3#entry#grant;rs;[all]#public#"
	a, err := Parse(raw)
	assert.NoError(t, err)
	assert.Equal(t, raw, a.String())
}

func TestScopeSubsumes(t *testing.T) {
	assert.True(t, ScopeEntry.Subsumes(WalkEntry))
	assert.False(t, ScopeEntry.Subsumes(WalkChildren))
	assert.True(t, ScopeSubtree.Subsumes(WalkEntry))
	assert.True(t, ScopeSubtree.Subsumes(WalkChildren))
}

func TestPermissionAppliesToAll(t *testing.T) {
	p := Permission{Attrs: []string{"[all]"}}
	assert.True(t, p.AppliesTo("userPassword"))
}

func TestPermissionAppliesToNamedAttrCaseInsensitive(t *testing.T) {
	p := Permission{Attrs: []string{"userPassword"}}
	assert.True(t, p.AppliesTo("userpassword"))
	assert.False(t, p.AppliesTo("cn"))
}

type fakeGroupResolver struct{ member bool }

func (f fakeGroupResolver) IsMember(context.Context, string, string, string) (bool, error) {
	return f.member, nil
}

func newACICtx(boundDN, entryDN string) *reqctx.Context {
	return &reqctx.Context{
		Ctx:      context.Background(),
		Request:  reqctx.Request{EntryDN: entryDN},
		Identity: spi.IdentityContext{BoundDN: boundDN},
		State:    cache.New(),
	}
}

func TestEvaluateEntryPublicGrant(t *testing.T) {
	ctx := newACICtx("uid=jdoe,dc=example,dc=com", "cn=group1,dc=example,dc=com")
	d := EvaluateEntry(ctx, []string{"1.2.3#entry#grant;r;[all]#public#"}, "cn")
	assert.True(t, d.Grant.Allows(priv.LevelRead))
	assert.Equal(t, priv.Mask(0), d.Deny)
}

func TestEvaluateEntrySkipsWrongScope(t *testing.T) {
	ctx := newACICtx("uid=jdoe,dc=example,dc=com", "cn=group1,dc=example,dc=com")
	d := EvaluateEntry(ctx, []string{"1.2.3#children#grant;r;[all]#public#"}, "cn")
	assert.Equal(t, priv.Mask(0), d.Grant)
}

func TestEvaluateEntryGroupSubject(t *testing.T) {
	ctx := newACICtx("uid=jdoe,dc=example,dc=com", "cn=group1,dc=example,dc=com")
	ctx.Groups = fakeGroupResolver{member: true}
	d := EvaluateEntry(ctx, []string{"1.2.3#entry#grant;w;[all]#group#cn=admins,dc=example,dc=com#"}, "cn")
	assert.True(t, d.Grant.Bits()&priv.Write != 0)
}

func TestEvaluateEntryGroupSubjectNonMember(t *testing.T) {
	ctx := newACICtx("uid=jdoe,dc=example,dc=com", "cn=group1,dc=example,dc=com")
	ctx.Groups = fakeGroupResolver{member: false}
	d := EvaluateEntry(ctx, []string{"1.2.3#entry#grant;w;[all]#group#cn=admins,dc=example,dc=com#"}, "cn")
	assert.Equal(t, priv.Mask(0), d.Grant)
}

func TestEvaluateEntryAccessID(t *testing.T) {
	ctx := newACICtx("uid=jdoe,dc=example,dc=com", "cn=group1,dc=example,dc=com")
	d := EvaluateEntry(ctx, []string{"1.2.3#entry#grant;r;[all]#access-id#uid=jdoe,dc=example,dc=com"}, "cn")
	assert.True(t, d.Grant.Allows(priv.LevelRead))
}

func TestEvaluateEntrySelfSubject(t *testing.T) {
	ctx := newACICtx("cn=group1,dc=example,dc=com", "cn=group1,dc=example,dc=com")
	d := EvaluateEntry(ctx, []string{"1.2.3#entry#grant;w;[all]#self#"}, "cn")
	assert.True(t, d.Grant.Bits()&priv.Write != 0)
}

func TestCombineGrantOnly(t *testing.T) {
	m, additive, ok := Combine(priv.FromLevel(priv.LevelRead), Decision{Grant: priv.FromLevel(priv.LevelRead)})
	assert.True(t, ok)
	assert.True(t, additive)
	assert.Equal(t, priv.FromLevel(priv.LevelRead), m)
}

func TestCombineDenyOnly(t *testing.T) {
	m, additive, ok := Combine(priv.FromLevel(priv.LevelRead), Decision{Deny: priv.FromLevel(priv.LevelRead)})
	assert.True(t, ok)
	assert.False(t, additive)
	assert.Equal(t, priv.FromLevel(priv.LevelRead), m)
}

func TestCombineNeitherGrantsNorDenies(t *testing.T) {
	_, _, ok := Combine(priv.FromLevel(priv.LevelRead), Decision{})
	assert.False(t, ok)
}

func TestCombineDenyWinsOverlap(t *testing.T) {
	clause := priv.FromLevel(priv.LevelRead)
	m, additive, ok := Combine(clause, Decision{Grant: clause, Deny: priv.FromLevel(priv.LevelAuth)})
	assert.True(t, ok)
	assert.True(t, additive)
	assert.False(t, m.Allows(priv.LevelAuth))
}
