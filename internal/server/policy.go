package server

import (
	"github.com/smarzola/ldapacl/internal/access/mask"
	"github.com/smarzola/ldapacl/internal/access/pattern"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/rule"
	"github.com/smarzola/ldapacl/internal/access/who"
)

// defaultPolicy builds the directory's built-in rule set: members of the
// admin group get full management rights everywhere, any bound identity
// can change its own userPassword (every other requester gets only auth
// access to it), and the rest of the tree is readable by every
// requester, bound or anonymous.
func defaultPolicy(baseDN, adminGroupDN string) *rule.PolicyList {
	list := &rule.PolicyList{}

	admin := rule.NewRule(pattern.StyleSubtree, baseDN)
	admin.Who(
		who.New(who.Group(adminGroupDN, "member", false)),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelManage), Verdict: mask.Stop},
	)
	admin.Who(
		who.New(),
		mask.Effect{Kind: mask.Absolute, Mask: 0, Verdict: mask.Break},
	)
	list.Append(admin)

	pwd := rule.NewRule(pattern.StyleSubtree, baseDN).To("userPassword")
	pwd.Who(
		who.New(who.DNPattern(pattern.StyleSelf, "", 0, false)),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelWriteDel), Verdict: mask.Stop},
	)
	pwd.Who(
		who.New(),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelAuth), Verdict: mask.Stop},
	)
	list.Append(pwd)

	base := rule.NewRule(pattern.StyleSubtree, baseDN)
	base.Who(
		who.New(),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelRead), Verdict: mask.Stop},
	)
	list.Append(base)

	return list
}
