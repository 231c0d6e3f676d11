// Package mask implements the access control engine's Mask Composer
// (spec.md §4.4): applying a who-clause's effect mask to a running
// mask under additive, subtractive, or absolute composition, and
// interpreting the clause's control verdict.
package mask

import "github.com/smarzola/ldapacl/internal/access/priv"

// Verdict is the control outcome a who clause carries: whether
// evaluation continues to the next clause, breaks out to the next
// rule, or stops evaluation entirely.
type Verdict int

const (
	Continue Verdict = iota
	Break
	Stop
)

// Kind distinguishes how an effect mask composes with the running
// mask.
type Kind int

const (
	Absolute Kind = iota
	Additive
	Subtractive
)

// Effect is a who-clause's declared outcome: a privilege mask plus how
// it composes, and the control verdict to apply afterward.
type Effect struct {
	Kind    Kind
	Mask    priv.Mask
	Verdict Verdict
}

// Outcome is the Mask Composer's return value for one clause
// application: the updated running mask and whether evaluation should
// continue, break, or stop.
type Outcome struct {
	Mask    priv.Mask
	Verdict Verdict
}

// Apply composes effect onto running per spec.md §4.4 and returns the
// resulting mask and verdict.
func Apply(running priv.Mask, effect Effect) Outcome {
	var next priv.Mask
	switch effect.Kind {
	case Additive:
		next = (running | effect.Mask.Bits()).Clean() | priv.Additive
	case Subtractive:
		next = (running &^ effect.Mask.Bits()).Clean() | priv.Subtractive
	default:
		next = effect.Mask.Clean()
	}
	return Outcome{Mask: next.Clean(), Verdict: effect.Verdict}
}

// Exhausted returns the implicit "by * none" outcome applied when a
// clause list runs out without a BREAK or STOP: the mask is cleared
// and evaluation stops.
func Exhausted() Outcome {
	return Outcome{Mask: 0, Verdict: Stop}
}
