package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smarzola/ldapacl/internal/access/mask"
	"github.com/smarzola/ldapacl/internal/access/pattern"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/who"
)

type fakeSchema struct{}

func (fakeSchema) ResolveName(attr string) string { return attr }
func (fakeSchema) IsInList(attr string, list []string) bool {
	for _, a := range list {
		if a == attr {
			return true
		}
	}
	return false
}
func (fakeSchema) MatchValue(entryAttr, value, _ string) bool { return entryAttr == value }
func (fakeSchema) TestEntryFilter(*reqctx.Context, string) bool { return true }

func newSelectCtx(entryDN, attr string) *reqctx.Context {
	return &reqctx.Context{Request: reqctx.Request{EntryDN: entryDN, Attribute: attr}}
}

func TestPolicyListEmptyAndHead(t *testing.T) {
	list := &PolicyList{}
	assert.True(t, list.Empty())
	assert.Nil(t, list.Head())
}

func TestNilPolicyListIsEmpty(t *testing.T) {
	var list *PolicyList
	assert.True(t, list.Empty())
}

func TestPolicyListAppendOrder(t *testing.T) {
	list := &PolicyList{}
	r1 := NewRule(pattern.StyleSubtree, "dc=example,dc=com")
	r2 := NewRule(pattern.StyleBase, "cn=admin,dc=example,dc=com")
	list.Append(r1)
	list.Append(r2)
	assert.Same(t, r1, list.Head())
	assert.Same(t, r2, Next(list, r1))
	assert.Nil(t, Next(list, r2))
}

func TestNewRuleChaining(t *testing.T) {
	r := NewRule(pattern.StyleSubtree, "dc=example,dc=com").To("cn", "sn").Filter("(objectClass=person)")
	assert.Equal(t, []string{"cn", "sn"}, r.Entry.Attributes)
	assert.Equal(t, "(objectClass=person)", r.Entry.Filter)
}

func TestWhoAppendsClauses(t *testing.T) {
	r := NewRule(pattern.StyleSubtree, "dc=example,dc=com")
	r.Who(who.New(), mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelRead)})
	assert.Len(t, r.Clauses, 1)
}

func TestSelectMatchesSubtree(t *testing.T) {
	list := &PolicyList{}
	list.Append(NewRule(pattern.StyleSubtree, "dc=example,dc=com"))

	ctx := newSelectCtx("ou=people,dc=example,dc=com", "")
	matched, _ := Select(list, nil, ctx, fakeSchema{})
	assert.NotNil(t, matched)
}

func TestSelectSkipsNonMatchingEntry(t *testing.T) {
	list := &PolicyList{}
	list.Append(NewRule(pattern.StyleSubtree, "dc=other,dc=com"))

	ctx := newSelectCtx("ou=people,dc=example,dc=com", "")
	matched, _ := Select(list, nil, ctx, fakeSchema{})
	assert.Nil(t, matched)
}

func TestSelectHonorsAttributeAllowList(t *testing.T) {
	list := &PolicyList{}
	list.Append(NewRule(pattern.StyleSubtree, "dc=example,dc=com").To("userPassword"))

	ctx := newSelectCtx("ou=people,dc=example,dc=com", "cn")
	matched, _ := Select(list, nil, ctx, fakeSchema{})
	assert.Nil(t, matched)

	ctx2 := newSelectCtx("ou=people,dc=example,dc=com", "userPassword")
	matched2, _ := Select(list, nil, ctx2, fakeSchema{})
	assert.NotNil(t, matched2)
}

func TestSelectContinuesPastFirstNonMatch(t *testing.T) {
	list := &PolicyList{}
	r1 := NewRule(pattern.StyleSubtree, "dc=other,dc=com")
	r2 := NewRule(pattern.StyleSubtree, "dc=example,dc=com")
	list.Append(r1)
	list.Append(r2)

	ctx := newSelectCtx("ou=people,dc=example,dc=com", "")
	matched, _ := Select(list, nil, ctx, fakeSchema{})
	assert.Same(t, r2, matched)
}

func TestSelectRegexCapturesGroups(t *testing.T) {
	list := &PolicyList{}
	list.Append(NewRule(pattern.StyleRegex, "^uid=([a-z]+),.*$"))

	ctx := newSelectCtx("uid=jdoe,ou=people,dc=example,dc=com", "")
	matched, groups := Select(list, nil, ctx, fakeSchema{})
	assert.NotNil(t, matched)
	assert.Equal(t, "jdoe", groups[1])
}

func TestSelectFilterPredicate(t *testing.T) {
	list := &PolicyList{}
	list.Append(NewRule(pattern.StyleSubtree, "dc=example,dc=com").Filter("(objectClass=person)"))

	ctx := newSelectCtx("ou=people,dc=example,dc=com", "")
	matched, _ := Select(list, nil, ctx, fakeSchema{})
	assert.NotNil(t, matched)
}
