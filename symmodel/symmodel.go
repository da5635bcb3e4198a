// Package symmodel is the opaque view of the symbolic transition system
//: posts(x,u) -> {x'}, counts, and the three state kinds
// normal/overflow/dummy.
package symmodel

import (
	"errors"

	"github.com/omegasynth/pgame/corelog"
)

// ErrDomain is raised when Posts is called with an out-of-range state or
// control index.
var ErrDomain = errors.New("symmodel: state or control index out of range")

// Kind tags a symbolic state by construction.
type Kind uint8

const (
	Normal Kind = iota
	Overflow
	Dummy
)

func (k Kind) String() string {
	switch k {
	case Normal:
		return "NORMAL"
	case Overflow:
		return "OVERFLOW"
	case Dummy:
		return "DUMMY"
	default:
		return "UNKNOWN"
	}
}

// State is a symbolic state: a NORMAL state carries Value in
// [0, n_states); OVERFLOW and DUMMY carry no value.
type State struct {
	Kind  Kind
	Value int
}

// DummyState is the pre-initial marker.
func DummyState() State { return State{Kind: Dummy} }

// OverflowState is the out-of-domain sink.
func OverflowState() State { return State{Kind: Overflow} }

// NormalState wraps a valid state index.
func NormalState(v int) State { return State{Kind: Normal, Value: v} }

// Model is the upstream symbolic-model consumed contract.
// Posts is only ever called with state != DUMMY by View; the DUMMY
// successor set is InitialStates(), supplied directly by the caller.
type Model interface {
	InitialStates() []int
	NStates() int
	NControls() int
	// Posts returns the post-states of (state, control) when state is a
	// valid NORMAL index in [0, NStates()). The returned indices need not
	// lie in range: View.Posts clamps out-of-range results to OVERFLOW.
	Posts(state, control int) ([]int, error)
}

// View wraps a Model and implements the full NORMAL/OVERFLOW/DUMMY
// state-kind dispatch table.
type View struct {
	Model Model
	Log   corelog.Logger
}

// NewView returns a View over model, logging diagnostics at log (which may
// be corelog.NoOp()).
func NewView(model Model, log corelog.Logger) *View {
	if log == nil {
		log = corelog.NoOp()
	}
	return &View{Model: model, Log: log}
}

// Posts dispatches on state.Kind :
//   - state must not be DUMMY (panics — DUMMY has no model-level posts;
//     callers must special-case it themselves using InitialStates()).
//   - OVERFLOW is a sink: {OVERFLOW}.
//   - NORMAL(v) with control out of [0, NControls()) is a domain error.
//   - NORMAL(v) whose underlying posts return any index outside
//     [0, NStates()) collapses the whole result to {OVERFLOW}, the same as
//     an upstream OVERFLOW passed straight through; a distinct diagnostic
//     is logged for each case.
func (v *View) Posts(state State, control int) ([]State, error) {
	switch state.Kind {
	case Dummy:
		panic("symmodel: Posts called with DUMMY state; dispatch InitialStates() instead")
	case Overflow:
		v.Log.Debug("symmodel: post left the discretized domain", "reason", "propagated", "state", state.Value, "control", control)
		return []State{OverflowState()}, nil
	case Normal:
		if control < 0 || control >= v.Model.NControls() {
			return nil, ErrDomain
		}
		if state.Value < 0 || state.Value >= v.Model.NStates() {
			return nil, ErrDomain
		}
		raw, err := v.Model.Posts(state.Value, control)
		if err != nil {
			return nil, err
		}
		out := make([]State, 0, len(raw))
		for _, r := range raw {
			if r < 0 || r >= v.Model.NStates() {
				v.Log.Debug("symmodel: post left the discretized domain", "reason", "clamped", "state", state.Value, "control", control, "raw", r)
				return []State{OverflowState()}, nil
			}
			out = append(out, NormalState(r))
		}
		return out, nil
	default:
		return nil, ErrDomain
	}
}

// InitialStates returns the model's initial NORMAL states, wrapped.
func (v *View) InitialStates() []State {
	raw := v.Model.InitialStates()
	out := make([]State, len(raw))
	for i, r := range raw {
		out[i] = NormalState(r)
	}
	return out
}

// NControls returns the model's control count.
func (v *View) NControls() int { return v.Model.NControls() }

// NStates returns the model's state count.
func (v *View) NStates() int { return v.Model.NStates() }
