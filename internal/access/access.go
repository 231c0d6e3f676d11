// Package access is the top-level entry point of the access control
// engine: it drives rule selection, who-clause evaluation, mask
// composition, and ACI evaluation to answer access_allowed and
// access_allowed_mask for a single request (spec.md §6).
package access

import (
	"context"

	"github.com/smarzola/ldapacl/internal/access/accessmetrics"
	"github.com/smarzola/ldapacl/internal/access/aci"
	"github.com/smarzola/ldapacl/internal/access/cache"
	"github.com/smarzola/ldapacl/internal/access/mask"
	"github.com/smarzola/ldapacl/internal/access/priv"
	"github.com/smarzola/ldapacl/internal/access/reqctx"
	"github.com/smarzola/ldapacl/internal/access/rule"
	"github.com/smarzola/ldapacl/internal/access/spi"
)

// SchemaResolver is the full collaborator surface the engine and the
// rule selector together need from schema resolution.
type SchemaResolver interface {
	rule.SchemaResolver
	spi.SchemaResolver
}

// Config configures an Engine: the two policy lists consulted in order
// (per-database, then global), the backend default privilege level
// used when both lists are empty, the name of the attribute carrying
// dynamic ACI values, and the collaborators.
type Config struct {
	DatabaseRules *rule.PolicyList
	GlobalRules   *rule.PolicyList
	DefaultLevel  priv.Level
	ACIAttribute  string

	Store  spi.EntryStore
	Groups spi.GroupResolver
	Schema SchemaResolver
	Sets   spi.SetGatherer

	// Metrics is optional; when set, each AccessAllowedMask call
	// records its decision and rule scan depth.
	Metrics *accessmetrics.Metrics
}

// Engine evaluates access control decisions against a fixed
// configuration. It holds no per-request state; every Engine method
// is safe for concurrent use once configured (spec.md §5).
type Engine struct {
	cfg Config
}

// New builds an Engine from cfg. cfg is not copied defensively: callers
// must not mutate it after rules are live, matching the
// configuration-time-only mutation model of spec.md §5.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// AccessAllowed reports whether req is granted against entry for
// identity ident, using a fresh per-operation state cache.
func (e *Engine) AccessAllowed(ctx context.Context, ident spi.IdentityContext, entry *spi.Entry, req reqctx.Request) bool {
	allowed, _ := e.AccessAllowedMask(ctx, ident, entry, req, cache.New())
	return allowed
}

// AccessAllowedMask is AccessAllowed but also returns the final
// privilege mask, and accepts an explicit state cache so a caller
// (e.g. the modification check) can reuse it across a sequence of
// related requests.
func (e *Engine) AccessAllowedMask(ctx context.Context, ident spi.IdentityContext, entry *spi.Entry, req reqctx.Request, state *cache.State) (bool, priv.Mask) {
	if ident.IsRoot {
		e.recordDecision(true, 0)
		return true, priv.FromLevel(priv.LevelManage)
	}

	rc := &reqctx.Context{
		Ctx:      ctx,
		Request:  req,
		Entry:    entry,
		Identity: ident,
		Store:    e.cfg.Store,
		Groups:   e.cfg.Groups,
		Schema:   e.cfg.Schema,
		Sets:     e.cfg.Sets,
		State:    state,
	}

	needed := req.Requested.Effective()

	if e.cfg.DatabaseRules.Empty() && e.cfg.GlobalRules.Empty() {
		m := priv.FromLevel(e.cfg.DefaultLevel)
		e.recordDecision(m.Allows(needed), 0)
		return m.Allows(needed), m
	}

	m, ok, depth := e.evaluateList(e.cfg.DatabaseRules, rc)
	if !ok {
		var depth2 int
		m, _, depth2 = e.evaluateList(e.cfg.GlobalRules, rc)
		depth += depth2
	}

	allowed := m.Allows(needed)
	e.recordDecision(allowed, depth)
	return allowed, m
}

func (e *Engine) recordDecision(allowed bool, depth int) {
	if e.cfg.Metrics == nil {
		return
	}
	if allowed {
		e.cfg.Metrics.ObserveGrant()
	} else {
		e.cfg.Metrics.ObserveDeny()
	}
	e.cfg.Metrics.ObserveScanDepth(depth)
}

// evaluateList walks list's matching rules in order, applying each
// matched rule's clauses, until a STOP (or BREAK reaching end of list)
// decides the mask, or the list is exhausted. ok reports whether any
// rule in the list matched the entry at all; depth is the number of
// rules walked.
func (e *Engine) evaluateList(list *rule.PolicyList, rc *reqctx.Context) (priv.Mask, bool, int) {
	var running priv.Mask
	var matchedAny bool
	var cur *rule.AccessControl
	var depth int

	for {
		next, matches := rule.Select(list, cur, rc, e.cfg.Schema)
		if next == nil {
			break
		}
		depth++
		matchedAny = true
		cur = next
		rc.EntryMatches = matches

		outcome, stop := e.evaluateClauses(cur, rc, running)
		running = outcome
		if stop {
			return running, true, depth
		}
		// Only BREAK reaches here; an exhausted clause list has already
		// stopped with a cleared mask.
	}

	return running, matchedAny, depth
}

// evaluateClauses walks one rule's who clauses from the first index,
// applying the Mask Composer to each match, returning the updated
// mask and whether evaluation should stop entirely (true) or move on
// to the next rule (false).
func (e *Engine) evaluateClauses(r *rule.AccessControl, rc *reqctx.Context, running priv.Mask) (priv.Mask, bool) {
	for _, clause := range r.Clauses {
		if !clause.Who.Matches(rc) {
			continue
		}

		effect := clause.Effect
		if isACIEffect(effect) {
			ok, resolved := e.resolveACIEffect(rc, effect, running)
			if !ok {
				continue
			}
			effect = resolved
		}

		out := mask.Apply(running, effect)
		running = out.Mask
		switch out.Verdict {
		case mask.Stop:
			return running, true
		case mask.Break:
			return running, false
		default:
			continue
		}
	}
	out := mask.Exhausted()
	return out.Mask, true
}

// aciEffectMarker is a sentinel Kind recognized only by this file,
// letting a rule builder mark a clause as "resolve via ACI" without
// the mask package needing to know about ACI at all.
const aciEffectMarker mask.Kind = -1

// ACIEffect builds a who-clause Effect that defers its mask to dynamic
// per-entry ACI evaluation, gated by declaredMask per spec.md §4.3:
// the clause is only considered if declaredMask already grants the
// requested privilege.
func ACIEffect(declaredMask priv.Mask, verdict mask.Verdict) mask.Effect {
	return mask.Effect{Kind: aciEffectMarker, Mask: declaredMask, Verdict: verdict}
}

func isACIEffect(e mask.Effect) bool {
	return e.Kind == aciEffectMarker
}

func (e *Engine) resolveACIEffect(rc *reqctx.Context, effect mask.Effect, _ priv.Mask) (bool, mask.Effect) {
	if !effect.Mask.Allows(rc.Request.Requested.Effective()) {
		return false, mask.Effect{}
	}

	if rc.Entry == nil || e.cfg.ACIAttribute == "" {
		return false, mask.Effect{}
	}

	values := rc.Entry.Attributes[e.cfg.ACIAttribute]
	decision := aci.EvaluateEntry(rc, values, rc.Request.Attribute)

	if decision.Grant == 0 && decision.Deny == 0 {
		decision = e.walkAncestors(rc)
	}

	resultMask, additive, ok := aci.Combine(effect.Mask, decision)
	if !ok {
		return false, mask.Effect{}
	}
	kind := mask.Subtractive
	if additive {
		kind = mask.Additive
	}
	return true, mask.Effect{Kind: kind, Mask: resultMask, Verdict: effect.Verdict}
}

func (e *Engine) walkAncestors(rc *reqctx.Context) aci.Decision {
	ancestors, err := e.cfg.Store.Ancestors(rc.Ctx, rc.Request.EntryDN)
	if err != nil {
		return aci.Decision{}
	}
	for _, anc := range ancestors {
		values, ok := anc.Attributes[e.cfg.ACIAttribute]
		if !ok {
			continue
		}
		d := aci.EvaluateAncestor(rc, values, rc.Request.Attribute, anc.DN)
		if d.Grant != 0 || d.Deny != 0 {
			return d
		}
	}
	return aci.Decision{}
}
