// Package solver decides, for every vertex of a constructed arena, which
// player wins under optimal play, via per-player strategy iteration over
// lexicographically compared color-distance vectors.
package solver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/omegasynth/pgame/colorbag"
	"github.com/omegasynth/pgame/colordist"
	"github.com/omegasynth/pgame/config"
	"github.com/omegasynth/pgame/corelog"
	"github.com/omegasynth/pgame/dpa"
	"github.com/omegasynth/pgame/metrics"
	"github.com/omegasynth/pgame/pgame"
)

// ErrSolverBug is returned when distance arithmetic reaches an internally
// inconsistent state (an arena/color-count mismatch that should never
// happen if the arena was built correctly).
var ErrSolverBug = errors.New("solver: internal distance-arithmetic inconsistency")

// ErrArenaIncomplete is returned when Solve is asked to run against an
// arena whose construction did not finish.
var ErrArenaIncomplete = errors.New("solver: arena is not complete")

// maxPasses bounds each phase's relaxation loop: the true fixpoint is
// reached long before this for any arena whose vertex and color counts are
// the sizes this module is meant for; it exists only to turn a would-be
// infinite loop (a solver bug) into a returned error instead of a hang.
const maxPasses = 1 << 20

// Solver runs strategy iteration over a constructed arena.
type Solver struct {
	Arena *pgame.Arena
	// Parity is the winning parity of the DPA the arena was built from;
	// it decides the sign of colordist.Delta at each reduced color index.
	Parity  dpa.Parity
	Config  config.Config
	Metrics *metrics.Metrics
	Log     corelog.Logger
}

// Solve computes the winner of Arena.InitialEnv() and, as a side effect,
// populates every vertex's winner, every system edge's active flag, and
// every environment vertex's chosen edge.
//
// It runs two phases in sequence, one per player: a sys-phase that can
// only ever mark vertices SYS-won, followed by an env-phase that can only
// ever mark ENV-won. A closed recurrence with no reachable sink is
// resolved by a bounded escalation rather than the literal unbounded
// sentinel seeding: a vertex confined to a cycle keeps paying the same
// color forever, so its distance's leading component drifts monotonically
// in one direction pass after pass, crossing a vertex-count-scaled bound
// long before any genuinely acyclic, sink-reaching chain could (see
// escalate and DESIGN.md).
func (s *Solver) Solve(ctx context.Context) (pgame.Winner, error) {
	if s.Metrics == nil {
		s.Metrics = metrics.Noop()
	}
	if s.Log == nil {
		s.Log = corelog.NoOp()
	}
	if s.Arena == nil || !s.Arena.Complete() {
		return pgame.Unknown, ErrArenaIncomplete
	}

	a := s.Arena
	colorMap, numColors := reduceColors(a)
	parityBit := s.Parity.Bit()
	if s.Config.Verbosity >= 1 {
		s.Log.Info("solver: color reduction done", "distinctColors", len(colorMap), "reducedColors", numColors)
	}

	nSys, nEnv := a.NSys(), a.NEnv()
	sysDist := make([]colordist.Vector, nSys)
	envDist := make([]colordist.Vector, nEnv)
	for i := range sysDist {
		sysDist[i] = colordist.NewVector(numColors)
	}
	for i := range envDist {
		envDist[i] = colordist.NewVector(numColors)
	}

	// A vertex with no outgoing move has no real choice at all: a stuck
	// system vertex loses on the spot, a stuck environment vertex hands
	// the system an immediate win.
	for sv := 0; sv < nSys; sv++ {
		if begin, end := a.SysSuccessors(uint32(sv)); begin == end {
			a.SetSysWinner(uint32(sv), pgame.Env)
			sysDist[sv] = colordist.NegInfVector(numColors)
		}
	}
	for ev := 0; ev < nEnv; ev++ {
		if begin, end := a.EnvSuccessors(uint32(ev)); begin == end {
			a.SetEnvWinner(uint32(ev), pgame.Sys)
			envDist[ev] = colordist.PosInfVector(numColors)
		}
	}

	// bound is the per-component escalation threshold: any simple
	// (non-repeating) path through the arena visits at most nSys+nEnv
	// vertices, so a color paid along a genuinely sink-reaching chain can
	// never accumulate past this many times before reaching that sink.
	// A component still growing past it can only mean an unrefuted
	// recurrence.
	bound := colordist.Value(nSys + nEnv + 1)

	if err := s.runPhase(ctx, pgame.Sys, parityBit, colorMap, numColors, bound, sysDist, envDist); err != nil {
		return pgame.Unknown, err
	}
	if s.Config.Verbosity >= 1 {
		s.Log.Info("solver: sys-phase fixed point reached")
	}
	if err := s.runPhase(ctx, pgame.Env, parityBit, colorMap, numColors, bound, sysDist, envDist); err != nil {
		return pgame.Unknown, err
	}
	if s.Config.Verbosity >= 1 {
		s.Log.Info("solver: env-phase fixed point reached")
	}

	winner := a.EnvWinner(a.InitialEnv())
	if winner == pgame.Unknown {
		// Determinacy guarantees every vertex is decided by the end of
		// both phases; reaching here means the phases themselves are
		// inconsistent with each other.
		return pgame.Unknown, ErrSolverBug
	}
	if winner == pgame.Sys {
		s.Metrics.LastWinnerIsSystem.Set(1)
	} else {
		s.Metrics.LastWinnerIsSystem.Set(0)
	}
	return winner, nil
}

// runPhase runs one player's strategy-iteration phase to its fixpoint:
// repeated Bellman-Ford relaxation, strategy improvement, and node
// marking, until a full pass changes nothing.
func (s *Solver) runPhase(
	ctx context.Context,
	player pgame.Winner,
	parityBit int,
	colorMap map[dpa.Color]int,
	numColors int,
	bound colordist.Value,
	sysDist, envDist []colordist.Vector,
) error {
	a := s.Arena

	// Re-seed every vertex this phase is still adversarial about. A
	// vertex already decided, by either player, keeps its frozen
	// distance (already the true sentinel, and read-only from here on
	// since the relaxation loops below skip any vertex with a winner
	// set); only an Unknown vertex starts fresh for this phase.
	for sv := 0; sv < len(sysDist); sv++ {
		if a.SysWinner(uint32(sv)) == pgame.Unknown {
			sysDist[sv] = colordist.NewVector(numColors)
		}
	}
	for ev := 0; ev < len(envDist); ev++ {
		if a.EnvWinner(uint32(ev)) == pgame.Unknown {
			envDist[ev] = colordist.NewVector(numColors)
		}
	}

	if player == pgame.Sys {
		for sv := 0; sv < a.NSys(); sv++ {
			begin, end := a.SysSuccessors(uint32(sv))
			for e := begin; e < end; e++ {
				a.SetSysActive(e, true)
			}
		}
	} else {
		for ev := 0; ev < a.NEnv(); ev++ {
			begin, end := a.EnvSuccessors(uint32(ev))
			if begin < end {
				a.SetEnvChoice(uint32(ev), begin)
			}
		}
	}

	for pass := 0; ; pass++ {
		if pass > maxPasses {
			return ErrSolverBug
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Metrics.SolverPasses.Inc()

		bfChanged, err := bfPass(a, player, parityBit, colorMap, numColors, bound, sysDist, envDist)
		if err != nil {
			return err
		}
		siChanged, err := strategyImprovement(a, player, parityBit, colorMap, numColors, sysDist, envDist)
		if err != nil {
			return err
		}
		nmChanged := nodeMarking(a, player, sysDist, envDist)

		if !bfChanged && !siChanged && !nmChanged {
			return nil
		}
	}
}

// bfPass runs one Bellman-Ford relaxation pass: each undecided system
// vertex adopts the max color-distance vector over the edges this
// phase's player lets it consider, each undecided environment vertex
// adopts the min over the edges it considers.
func bfPass(
	a *pgame.Arena,
	player pgame.Winner,
	parityBit int,
	colorMap map[dpa.Color]int,
	numColors int,
	bound colordist.Value,
	sysDist, envDist []colordist.Vector,
) (bool, error) {
	changed := false
	activeOnly := player == pgame.Sys

	for sv := 0; sv < len(sysDist); sv++ {
		if a.SysWinner(uint32(sv)) != pgame.Unknown {
			continue
		}
		begin, end := a.SysSuccessors(uint32(sv))
		var best colordist.Vector
		have := false
		for e := begin; e < end; e++ {
			if activeOnly && !a.SysActive(e) {
				continue
			}
			edge := a.SysEdgeAt(e)
			if edge.Target == pgame.NodeBottom {
				continue
			}
			var cand colordist.Vector
			if edge.Target == pgame.NodeTop {
				cand = colordist.PosInfVector(numColors)
			} else {
				paid, err := colordist.Paid(envDist[edge.Target], colorIndex(colorMap, edge.Color), parityBit)
				if err != nil {
					return false, fmt.Errorf("%w: %v", ErrSolverBug, err)
				}
				cand = paid
			}
			if !have || colordist.Compare(cand, best) > 0 {
				best = cand
				have = true
			}
		}
		if !have {
			// Transient: strategy improvement hasn't activated any edge
			// yet this phase, or every edge is temporarily excluded. Not
			// a decision, just a stall; leave the vector untouched.
			continue
		}
		best = escalate(best, bound, numColors, player)
		if colordist.Compare(best, sysDist[sv]) != 0 {
			sysDist[sv] = best
			changed = true
		}
	}

	for ev := 0; ev < len(envDist); ev++ {
		if a.EnvWinner(uint32(ev)) != pgame.Unknown {
			continue
		}
		begin, end := a.EnvSuccessors(uint32(ev))
		var worst colordist.Vector
		have := false
		for e := begin; e < end; e++ {
			if player == pgame.Env {
				choice, ok := a.EnvChoice(uint32(ev))
				if !ok || choice != e {
					continue
				}
			}
			cand := sysDist[a.EnvSuccSys(e)]
			if !have || colordist.Compare(cand, worst) < 0 {
				worst = cand
				have = true
			}
		}
		if !have {
			continue
		}
		worst = escalate(worst, bound, numColors, player)
		if colordist.Compare(worst, envDist[ev]) != 0 {
			envDist[ev] = worst
			changed = true
		}
	}

	return changed, nil
}

// escalate checks the first nonzero (most significant) component of a
// freshly relaxed candidate vector against bound. Drift past the bound in
// the direction favorable to this phase's player is accepted as proof of
// an unrefuted recurrence and promoted straight to the real sentinel,
// where node marking will pick it up; drift the other way is capped so it
// can't itself wander into the reserved sentinel range, leaving the
// vertex Unknown for the other phase to resolve.
func escalate(v colordist.Vector, bound colordist.Value, numColors int, player pgame.Winner) colordist.Vector {
	for i, c := range v {
		switch {
		case c == 0:
			continue
		case c >= bound:
			if player == pgame.Sys {
				return colordist.PosInfVector(numColors)
			}
			out := v.Clone()
			out[i] = bound - 1
			return out
		case c <= -bound:
			if player == pgame.Env {
				return colordist.NegInfVector(numColors)
			}
			out := v.Clone()
			out[i] = -(bound - 1)
			return out
		default:
			return v
		}
	}
	return v
}

// strategyImprovement rescans every undecided vertex's edges against its
// current distance. For P=SYS this only ever enables an edge (never
// disables one: sys_active is monotone within the sys-phase, and node
// marking is the only step allowed to turn an edge back off). For P=ENV
// it replaces env_choice with the first edge found to strictly improve
// (from the environment's perspective, decrease) the vertex's vector.
func strategyImprovement(
	a *pgame.Arena,
	player pgame.Winner,
	parityBit int,
	colorMap map[dpa.Color]int,
	numColors int,
	sysDist, envDist []colordist.Vector,
) (bool, error) {
	changed := false

	if player == pgame.Sys {
		for sv := 0; sv < len(sysDist); sv++ {
			if a.SysWinner(uint32(sv)) != pgame.Unknown {
				continue
			}
			begin, end := a.SysSuccessors(uint32(sv))
			for e := begin; e < end; e++ {
				edge := a.SysEdgeAt(e)
				if edge.Target == pgame.NodeBottom {
					continue
				}
				var cand colordist.Vector
				if edge.Target == pgame.NodeTop {
					cand = colordist.PosInfVector(numColors)
				} else {
					paid, err := colordist.Paid(envDist[edge.Target], colorIndex(colorMap, edge.Color), parityBit)
					if err != nil {
						return false, fmt.Errorf("%w: %v", ErrSolverBug, err)
					}
					cand = paid
				}
				if colordist.Compare(cand, sysDist[sv]) >= 0 && !a.SysActive(e) {
					a.SetSysActive(e, true)
					changed = true
				}
			}
		}
		return changed, nil
	}

	for ev := 0; ev < len(envDist); ev++ {
		if a.EnvWinner(uint32(ev)) != pgame.Unknown {
			continue
		}
		begin, end := a.EnvSuccessors(uint32(ev))
		for e := begin; e < end; e++ {
			cand := sysDist[a.EnvSuccSys(e)]
			if colordist.Compare(cand, envDist[ev]) < 0 {
				if cur, ok := a.EnvChoice(uint32(ev)); !ok || cur != e {
					a.SetEnvChoice(uint32(ev), e)
					changed = true
				}
				break
			}
		}
	}
	return changed, nil
}

// nodeMarking marks every vertex whose current distance has reached this
// phase's sentinel. For P=SYS it additionally disables any active edge
// out of a newly-SYS-won vertex that leads into an environment vertex
// already ENV-won, or still Unknown but finite: neither can ever again be
// part of a winning strategy, so the active set is pruned down to edges
// that actually realize the win.
func nodeMarking(a *pgame.Arena, player pgame.Winner, sysDist, envDist []colordist.Vector) bool {
	changed := false

	for sv := 0; sv < len(sysDist); sv++ {
		if a.SysWinner(uint32(sv)) != pgame.Unknown {
			continue
		}
		if player == pgame.Sys && sysDist[sv].IsPosInf() {
			a.SetSysWinner(uint32(sv), pgame.Sys)
			changed = true
		} else if player == pgame.Env && sysDist[sv].IsNegInf() {
			a.SetSysWinner(uint32(sv), pgame.Env)
			changed = true
		}
	}
	for ev := 0; ev < len(envDist); ev++ {
		if a.EnvWinner(uint32(ev)) != pgame.Unknown {
			continue
		}
		if player == pgame.Sys && envDist[ev].IsPosInf() {
			a.SetEnvWinner(uint32(ev), pgame.Sys)
			changed = true
		} else if player == pgame.Env && envDist[ev].IsNegInf() {
			a.SetEnvWinner(uint32(ev), pgame.Env)
			changed = true
		}
	}

	if player == pgame.Sys {
		for sv := 0; sv < len(sysDist); sv++ {
			if a.SysWinner(uint32(sv)) != pgame.Sys {
				continue
			}
			begin, end := a.SysSuccessors(uint32(sv))
			for e := begin; e < end; e++ {
				if !a.SysActive(e) {
					continue
				}
				edge := a.SysEdgeAt(e)
				if edge.Target == pgame.NodeTop || edge.Target == pgame.NodeBottom {
					continue
				}
				ew := a.EnvWinner(edge.Target)
				if ew == pgame.Env || (ew == pgame.Unknown && envDist[edge.Target].Finite0(0)) {
					a.SetSysActive(e, false)
				}
			}
		}
	}

	return changed
}

func colorIndex(colorMap map[dpa.Color]int, c dpa.Color) int {
	if idx, ok := colorMap[c]; ok {
		return idx
	}
	return 0
}

// reduceColors builds the dense color map over the distinct colors
// actually used on system edges: sorted ascending, the smallest used
// color's reduced index starts at its own parity (not forced to 0) and
// only increments on a parity switch between consecutive used colors,
// so the map is monotone in original-color order while preserving each
// color's parity relative to the winning condition.
func reduceColors(a *pgame.Arena) (map[dpa.Color]int, int) {
	bag := colorbag.New[dpa.Color]()
	for sv := 0; sv < a.NSys(); sv++ {
		begin, end := a.SysSuccessors(uint32(sv))
		for e := begin; e < end; e++ {
			if t := a.SysEdgeAt(e).Target; t == pgame.NodeTop || t == pgame.NodeBottom {
				// The absorbing sentinels are the win/loss itself, they
				// carry no color that needs a slot of its own.
				continue
			}
			bag.Add(a.SysEdgeAt(e).Color)
		}
	}
	colors := bag.List()
	if len(colors) == 0 {
		return map[dpa.Color]int{}, 1
	}
	sort.Slice(colors, func(i, j int) bool { return colors[i] < colors[j] })

	m := make(map[dpa.Color]int, len(colors))
	idx := int(colors[0]) % 2
	m[colors[0]] = idx
	for i := 1; i < len(colors); i++ {
		if int(colors[i])%2 != int(colors[i-1])%2 {
			idx++
		}
		m[colors[i]] = idx
	}
	return m, idx + 1
}
