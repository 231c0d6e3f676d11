package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smarzola/ldapacl/internal/access"
	"github.com/smarzola/ldapacl/internal/access/cache"
	"github.com/smarzola/ldapacl/internal/access/mask"
	"github.com/smarzola/ldapacl/internal/access/pattern"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/rule"
	"github.com/smarzola/ldapacl/internal/access/spi"
	"github.com/smarzola/ldapacl/internal/access/who"
	"github.com/smarzola/ldapacl/internal/schema"
)

var acltestFlags struct {
	bindDN  string
	entryDN string
	attr    string
	value   string
	level   string
	baseDN  string
	isRoot  bool
}

var acltestCmd = &cobra.Command{
	Use:   "acltest",
	Short: "Evaluate a single access request against a built-in sample policy",
	Long: "Loads a small built-in policy bundle (read of the base entry for " +
		"every requester, self-write of userPassword with auth-only access " +
		"to it for everyone else, no access to anything else) " +
		"and reports the grant decision and effective mask for one request, " +
		"without starting a network listener.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runACLTest()
	},
}

func init() {
	acltestCmd.Flags().StringVar(&acltestFlags.bindDN, "bind-dn", "", "bound identity DN (empty for anonymous)")
	acltestCmd.Flags().StringVar(&acltestFlags.entryDN, "entry-dn", "", "target entry DN")
	acltestCmd.Flags().StringVar(&acltestFlags.attr, "attr", "", "attribute description")
	acltestCmd.Flags().StringVar(&acltestFlags.value, "value", "", "specific value being tested (optional)")
	acltestCmd.Flags().StringVar(&acltestFlags.level, "level", "read", "requested privilege level")
	acltestCmd.Flags().StringVar(&acltestFlags.baseDN, "base-dn", "dc=example,dc=com", "directory base DN")
	acltestCmd.Flags().BoolVar(&acltestFlags.isRoot, "root", false, "evaluate as the root identity")
	rootCmd.AddCommand(acltestCmd)
}

// samplePolicy builds the worked examples from the evaluator's
// testable-properties scenarios: anonymous read of the base entry,
// self-write on userPassword, with auth-only access to it for every
// other requester. No rule grants anything else.
func samplePolicy(baseDN string) *rule.PolicyList {
	list := &rule.PolicyList{}

	pwdRule := rule.NewRule(pattern.StyleSubtree, baseDN).To("userPassword")
	pwdRule.Who(
		who.New(who.DNPattern(pattern.StyleSelf, "", 0, false)),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelWriteDel), Verdict: mask.Stop},
	)
	pwdRule.Who(
		who.New(),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelAuth), Verdict: mask.Stop},
	)
	list.Append(pwdRule)

	baseRule := rule.NewRule(pattern.StyleBase, baseDN)
	baseRule.Who(
		who.New(),
		mask.Effect{Kind: mask.Absolute, Mask: priv.FromLevel(priv.LevelRead), Verdict: mask.Stop},
	)
	list.Append(baseRule)

	return list
}

type nullGroups struct{}

func (nullGroups) IsMember(context.Context, string, string, string) (bool, error) { return false, nil }

type nullStore struct{ entry *spi.Entry }

func (s nullStore) Entry(_ context.Context, ndn string) (*spi.Entry, error) {
	if s.entry != nil && s.entry.DN == ndn {
		return s.entry, nil
	}
	return nil, nil
}

func (s nullStore) Ancestors(context.Context, string) ([]*spi.Entry, error) { return nil, nil }

func runACLTest() error {
	resolver := schema.NewResolver()

	entry := &spi.Entry{DN: acltestFlags.entryDN, Attributes: map[string][]string{}}

	engine := access.New(access.Config{
		DatabaseRules: samplePolicy(acltestFlags.baseDN),
		GlobalRules:   &rule.PolicyList{},
		DefaultLevel:  priv.LevelNone,
		ACIAttribute:  "aci",
		Store:         nullStore{entry: entry},
		Groups:        nullGroups{},
		Schema:        resolver,
		Sets:          nil,
	})

	ident := spi.IdentityContext{
		BoundDN: acltestFlags.bindDN,
		IsRoot:  acltestFlags.isRoot,
	}

	var valuePtr *string
	if acltestFlags.value != "" {
		valuePtr = &acltestFlags.value
	}

	req := reqctx.Request{
		EntryDN:   acltestFlags.entryDN,
		Attribute: acltestFlags.attr,
		Value:     valuePtr,
		Requested: priv.Requested{Level: priv.ParseLevel(acltestFlags.level)},
	}

	allowed, m := engine.AccessAllowedMask(context.Background(), ident, entry, req, cache.New())
	fmt.Printf("decision: %v\n", grantOrDeny(allowed))
	fmt.Printf("mask: %04x\n", uint16(m))
	return nil
}

func grantOrDeny(ok bool) string {
	if ok {
		return "grant"
	}
	return "deny"
}
