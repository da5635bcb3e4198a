// Package pgame builds and represents the finite two-player turn-based
// parity arena: the on-the-fly product of a total DPA and a
// symbolic transition system, with system vertices canonicalized by their
// outgoing edge multiset.
package pgame

import (
	"errors"

	"github.com/omegasynth/pgame/dpa"
	"github.com/omegasynth/pgame/symmodel"
)

// ErrDPAInvariantViolation is raised when the DPA returns a color outside
// [0, max_color] during construction.
var ErrDPAInvariantViolation = errors.New("pgame: DPA returned a color outside [0, max_color] or an inconsistent edge")

// Winner identifies which player wins a vertex.
type Winner uint8

const (
	Unknown Winner = iota
	Sys
	Env
)

func (w Winner) String() string {
	switch w {
	case Sys:
		return "SYS"
	case Env:
		return "ENV"
	default:
		return "UNKNOWN"
	}
}

// Sentinel vertex ids, the three largest uint32 values, reserved outside
// the live [0, n) range.
const (
	NodeNone   uint32 = ^uint32(0)
	NodeTop    uint32 = ^uint32(0) - 1
	NodeBottom uint32 = ^uint32(0) - 2
)

// SysEdge is one finalized system-vertex outgoing edge: a (target, color)
// pair plus the set of controls that realize it. Target is
// either a resolved environment-vertex id in [0, NEnv) or the NodeTop
// sentinel.
type SysEdge struct {
	Target uint32
	Color  dpa.Color
	Output []int
}

// Arena is the finite turn-based parity arena. It is write-once:
// populated by Builder.ConstructArena, then read-only. This is also the "produced
// contract" a downstream machine extractor reads.
type Arena struct {
	initialEnv uint32
	complete   bool

	envSuccBegin []uint32
	envSucc      []uint32            // sys vertex ids, one per environment edge
	envInput     [][]symmodel.State  // per environment edge, fused symbolic choices

	sysSuccBegin []uint32
	sysEdges     []SysEdge

	sysWinner []Winner
	envWinner []Winner
	sysActive []bool
	envChoice []int32 // chosen global env-edge index per env vertex, or -1
}

// InitialEnv returns the environment-vertex id of (initial_dpa_state, DUMMY).
func (a *Arena) InitialEnv() uint32 { return a.initialEnv }

// NEnv returns the number of environment vertices.
func (a *Arena) NEnv() int { return len(a.envSuccBegin) - 1 }

// NSys returns the number of system vertices.
func (a *Arena) NSys() int { return len(a.sysSuccBegin) - 1 }

// Complete reports whether construction finished without error. The
// solver refuses to run against an incomplete arena.
func (a *Arena) Complete() bool { return a.complete }

// EnvSuccessors returns the range of global env-edge indices outgoing
// from environment vertex v.
func (a *Arena) EnvSuccessors(v uint32) (begin, end uint32) {
	return a.envSuccBegin[v], a.envSuccBegin[v+1]
}

// EnvSuccSys returns the system-vertex id targeted by environment edge e.
func (a *Arena) EnvSuccSys(e uint32) uint32 { return a.envSucc[e] }

// EnvInput returns the set of symbolic choices fused onto environment
// edge e.
func (a *Arena) EnvInput(e uint32) []symmodel.State { return a.envInput[e] }

// SysSuccessors returns the range of global sys-edge indices outgoing
// from system vertex s.
func (a *Arena) SysSuccessors(s uint32) (begin, end uint32) {
	return a.sysSuccBegin[s], a.sysSuccBegin[s+1]
}

// SysEdgeAt returns the finalized edge data for global sys-edge index e.
func (a *Arena) SysEdgeAt(e uint32) SysEdge { return a.sysEdges[e] }

// SysOutput returns the set of controls realizing system edge e.
func (a *Arena) SysOutput(e uint32) []int { return a.sysEdges[e].Output }

// SysActive reports whether system edge e is currently part of the
// system's strategy.
func (a *Arena) SysActive(e uint32) bool { return a.sysActive[e] }

// SetSysActive marks system edge e active or inactive. Callers (the
// solver) only ever flip false->true during the sys-phase and
// true->false during node marking; this method does not itself enforce
// that monotonicity.
func (a *Arena) SetSysActive(e uint32, active bool) { a.sysActive[e] = active }

// EnvChoice returns the global env-edge index environment vertex v has
// currently chosen, and whether a choice has been made at all.
func (a *Arena) EnvChoice(v uint32) (uint32, bool) {
	c := a.envChoice[v]
	if c < 0 {
		return 0, false
	}
	return uint32(c), true
}

// SetEnvChoice records environment vertex v's chosen global env-edge index.
func (a *Arena) SetEnvChoice(v uint32, edge uint32) { a.envChoice[v] = int32(edge) }

// SysWinner returns the currently known winner of system vertex s.
func (a *Arena) SysWinner(s uint32) Winner { return a.sysWinner[s] }

// SetSysWinner records the winner of system vertex s. Once set to SYS or
// ENV it must never change.
func (a *Arena) SetSysWinner(s uint32, w Winner) { a.sysWinner[s] = w }

// EnvWinner returns the currently known winner of environment vertex v.
func (a *Arena) EnvWinner(v uint32) Winner { return a.envWinner[v] }

// SetEnvWinner records the winner of environment vertex v.
func (a *Arena) SetEnvWinner(v uint32, w Winner) { a.envWinner[v] = w }
