package modify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarzola/ldapacl/internal/access"
	"github.com/smarzola/ldapacl/internal/access/mask"
	"github.com/smarzola/ldapacl/internal/access/pattern"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/rule"
	"github.com/smarzola/ldapacl/internal/access/spi"
	"github.com/smarzola/ldapacl/internal/access/who"
)

type stubSchema struct {
	noUserMod map[string]bool
}

func (s stubSchema) ResolveName(attr string) string { return attr }
func (s stubSchema) IsNoUserModification(attr string) bool {
	return s.noUserMod[attr]
}
func (stubSchema) MatchValues(*spi.Entry, string, []string) bool { return false }
func (stubSchema) TestFilter(*spi.Entry, string) (bool, error)   { return false, nil }
func (stubSchema) IsInList(attr string, list []string) bool {
	for _, a := range list {
		if a == attr {
			return true
		}
	}
	return false
}
func (stubSchema) MatchValue(entryAttr, value, _ string) bool  { return entryAttr == value }
func (stubSchema) TestEntryFilter(*reqctx.Context, string) bool { return true }

func writeOnlyEngine(baseDN string, level priv.Level) *access.Engine {
	list := &rule.PolicyList{}
	r := rule.NewRule(pattern.StyleSubtree, baseDN)
	r.Who(who.New(), mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(level), Verdict: mask.Stop})
	list.Append(r)
	return access.New(access.Config{
		DatabaseRules: list,
		GlobalRules:   &rule.PolicyList{},
		DefaultLevel:  priv.LevelNone,
		Schema:        stubSchema{},
	})
}

func TestCheckerAllowsAddUnderWriteAdd(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelWriteAdd)
	c := NewChecker(engine, stubSchema{})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpAdd, Attr: "cn", Values: []string{"jdoe"}},
	})
	assert.True(t, ok)
}

func TestCheckerDeniesDeleteWithoutWriteDel(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelWriteAdd)
	c := NewChecker(engine, stubSchema{})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpDelete, Attr: "cn", Values: []string{"jdoe"}},
	})
	assert.False(t, ok)
}

func TestCheckerReplaceRequiresBothDelAndAdd(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelWriteDel)
	c := NewChecker(engine, stubSchema{})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpReplace, Attr: "cn", Values: []string{"jdoe"}},
	})
	assert.True(t, ok)
}

func TestCheckerInternalModAlwaysAllowed(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelNone)
	c := NewChecker(engine, stubSchema{})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpAdd, Attr: "modifyTimestamp", Internal: true},
	})
	assert.True(t, ok)
}

func TestCheckerSkipsNoUserModificationAttributes(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelNone)
	c := NewChecker(engine, stubSchema{noUserMod: map[string]bool{"entryUUID": true}})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpAdd, Attr: "entryUUID", Values: []string{"abc"}},
	})
	assert.True(t, ok)
}

func TestCheckerStopsAtFirstDeniedModification(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelWriteAdd)
	c := NewChecker(engine, stubSchema{})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpAdd, Attr: "cn", Values: []string{"jdoe"}},
		{Op: OpDelete, Attr: "sn", Values: []string{"doe"}},
	})
	assert.False(t, ok)
}

func TestCheckerDeleteWholeAttributeChecksAttrLevel(t *testing.T) {
	engine := writeOnlyEngine("dc=example,dc=com", priv.LevelWriteDel)
	c := NewChecker(engine, stubSchema{})
	entry := &spi.Entry{DN: "ou=people,dc=example,dc=com"}

	ok := c.Allowed(context.Background(), spi.IdentityContext{}, entry.DN, entry, []Mod{
		{Op: OpDelete, Attr: "description"},
	})
	assert.True(t, ok)
}

func TestReqctxRequestHasValue(t *testing.T) {
	v := "jdoe"
	r := reqctx.Request{Value: &v}
	assert.True(t, r.HasValue())
	assert.False(t, (reqctx.Request{}).HasValue())
}
