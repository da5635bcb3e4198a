// Package specadapter composes the complete IO letter a DPA consumes from
// a symbolic-model state and control.
package specadapter

import (
	"errors"

	"github.com/omegasynth/pgame/dpa"
	"github.com/omegasynth/pgame/symmodel"
)

// ErrDomain is raised when Labeler is asked to label an out-of-range
// state/control.
var ErrDomain = errors.New("specadapter: state or control index out of range")

// Labeler is the duck-typed L_x/L_u pair, expressed as a small capability
// interface rather than bare function values.
type Labeler interface {
	// StateLabel returns L_x(x): the bitmask of state-APs that hold at x.
	StateLabel(x int) (uint64, error)
	// ControlLabel returns L_u(u): the bitmask of control-APs that hold
	// under control u.
	ControlLabel(u int) (uint64, error)
}

// Adapter wraps a DPA together with a Labeler, composing the complete
// clause letter(x, u) before handing it to the DPA's successor function.
type Adapter struct {
	DPA       *dpa.TotalDPA
	Labeler   Labeler
	NStateAPs int // |X_AP|, the shift applied to the control mask
}

// New returns an Adapter over dpaAuto, using labeler to derive X/U masks
// and nStateAPs as the bit width of the state-AP portion of the letter.
func New(dpaAuto *dpa.TotalDPA, labeler Labeler, nStateAPs int) *Adapter {
	return &Adapter{DPA: dpaAuto, Labeler: labeler, NStateAPs: nStateAPs}
}

// CompleteClause composes letter(x, u) = L_x(x) | (L_u(u) << |X_AP|).
// When x is DUMMY the X-portion is zero, since no
// state-APs hold in the pre-initial step. OVERFLOW states are labeled with
// an all-zero X-portion too: no discretized state-AP is meaningfully true
// of a state that has left the domain (an Open Question decision recorded
// in DESIGN.md).
func (a *Adapter) CompleteClause(x symmodel.State, u int) (dpa.Letter, error) {
	var xMask uint64
	switch x.Kind {
	case symmodel.Dummy, symmodel.Overflow:
		xMask = 0
	case symmodel.Normal:
		m, err := a.Labeler.StateLabel(x.Value)
		if err != nil {
			return 0, ErrDomain
		}
		xMask = m
	}

	uMask, err := a.Labeler.ControlLabel(u)
	if err != nil {
		return 0, ErrDomain
	}

	letter := xMask | (uMask << uint(a.NStateAPs))
	return dpa.Letter(letter), nil
}
