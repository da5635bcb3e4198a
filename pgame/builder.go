package pgame

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/omegasynth/pgame/config"
	"github.com/omegasynth/pgame/corelog"
	"github.com/omegasynth/pgame/dpa"
	"github.com/omegasynth/pgame/intset"
	"github.com/omegasynth/pgame/metrics"
	"github.com/omegasynth/pgame/specadapter"
	"github.com/omegasynth/pgame/symmodel"
)

// Builder runs the on-the-fly arena construction: it interleaves a
// reachability search over environment references with, at each
// reference, a canonicalizing pass over the candidate system vertices
// those choices produce.
type Builder struct {
	DPA     *dpa.TotalDPA
	Adapter *specadapter.Adapter
	Model   symmodel.Model
	Config  config.Config
	Metrics *metrics.Metrics
	Log     corelog.Logger
}

// envKey identifies one not-yet-resolved environment vertex by the tuple
// it stands for: the DPA state reached, the symbolic state the
// environment just moved to, and the control the system chose to get
// there. The DUMMY pre-initial vertex uses dpaState = the DPA's initial
// state and symState = symmodel.DummyState(); control is unused in that
// case and fixed at 0 so DUMMY never collides with a real tuple (every
// real tuple's symState.Kind is Normal or Overflow, never Dummy).
type envKey struct {
	dpaState dpa.StateID
	symState symmodel.State
	control  int
}

// rawSysEdge accumulates one (target ref, color) pair while a candidate
// system vertex is being built, before the target ref is known to be
// resolved.
type rawSysEdge struct {
	targetRef int32
	color     dpa.Color
	output    []int
}

// ConstructArena builds the arena reachable from (DPA.Initial(), DUMMY),
// returning ctx.Err() if ctx is cancelled mid-construction — the arena
// returned in that case is not Complete and must not be solved.
func (b *Builder) ConstructArena(ctx context.Context) (*Arena, error) {
	if b.Metrics == nil {
		b.Metrics = metrics.Noop()
	}
	if b.Log == nil {
		b.Log = corelog.NoOp()
	}
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}

	view := symmodel.NewView(b.Model, b.Log)
	nControls := view.NControls()

	// Variable masking: constant-status bits are forced to their known
	// polarity before the letter reaches the DPA, so the lookup only ever
	// sees the canonical form of each letter. Unused bits fall in neither
	// mask and pass through untouched; the DPA ignores them anyway, so
	// this never changes the set of reachable vertices.
	var forceTrue, forceFalse dpa.Letter
	for i := 0; i < b.DPA.AlphabetSize(); i++ {
		switch b.DPA.VariableStatus(i) {
		case dpa.ConstantTrue:
			forceTrue |= 1 << uint(i)
		case dpa.ConstantFalse:
			forceFalse |= 1 << uint(i)
		}
	}

	// refs[i] holds the (dpa_state, sym_state, incoming_control) tuple a
	// reference stands for; resolved[i] is NodeNone until the reference's
	// environment vertex has been dequeued and materialized.
	var refs []envKey
	var resolved []uint32
	refByKey := make(map[envKey]int32, 64)

	allocRef := func(k envKey) int32 {
		if idx, ok := refByKey[k]; ok {
			return idx
		}
		idx := int32(len(refs))
		refs = append(refs, k)
		resolved = append(resolved, NodeNone)
		refByKey[k] = idx
		return idx
	}

	// Reference 0 is the permanent top sentinel: pre-resolved, never
	// queued, never dequeued.
	topKey := envKey{dpaState: -1, symState: symmodel.State{}, control: -1}
	refs = append(refs, topKey)
	resolved = append(resolved, NodeTop)

	initKey := envKey{dpaState: b.DPA.Initial(), symState: symmodel.DummyState(), control: 0}
	initRef := allocRef(initKey)

	pq := &refHeap{}
	heap.Init(pq)
	seq := 0
	heap.Push(pq, refItem{ref: initRef, score: 1.0, seq: seq})
	seq++

	push := func(ref int32) {
		heap.Push(pq, refItem{ref: ref, score: b.Config.ScoreHeuristic(int(ref)), seq: seq})
		seq++
	}

	var envVertices []builderEnvVertex
	var sysVertices []builderSysVertex
	sysCanon := make(map[string]int32, 64)

	a := &Arena{initialEnv: uint32(0)}

	for pq.Len() > 0 {
		select {
		case <-ctx.Done():
			return a, ctx.Err()
		default:
		}

		item := heap.Pop(pq).(refItem)
		ref := item.ref
		if resolved[ref] != NodeNone {
			continue
		}
		envID := uint32(len(envVertices))
		resolved[ref] = envID
		b.Metrics.VerticesExplored.Inc()

		tuple := refs[ref]
		if b.Config.Verbosity >= 2 {
			b.Log.Debug("pgame: materializing environment vertex",
				"env", envID, "dpaState", tuple.dpaState, "symState", tuple.symState.Kind.String(), "control", tuple.control)
		}

		var choices []symmodel.State
		if tuple.symState.Kind == symmodel.Dummy {
			choices = view.InitialStates()
		} else {
			cs, err := view.Posts(tuple.symState, tuple.control)
			if err != nil {
				return a, fmt.Errorf("pgame: computing environment choices: %w", err)
			}
			choices = cs
		}

		outgoing := make([]uint32, 0, len(choices))
		outgoingIn := make([]intset.Set[symmodel.State], 0, len(choices))
		outIndex := make(map[uint32]int, len(choices))

		for _, xp := range choices {
			var edges []rawSysEdge
			edgeIndex := make(map[[2]int64]int)

			for u := 0; u < nControls; u++ {
				letter, err := b.Adapter.CompleteClause(xp, u)
				if err != nil {
					return a, fmt.Errorf("pgame: labeling (x', u): %w", err)
				}
				letter = (letter | forceTrue) &^ forceFalse
				next, color, _, err := b.DPA.Successor(tuple.dpaState, letter)
				if err != nil {
					return a, fmt.Errorf("pgame: DPA successor: %w", err)
				}
				if color > b.DPA.MaxColor() {
					return a, fmt.Errorf("pgame: %w: color %d exceeds max color %d", ErrDPAInvariantViolation, color, b.DPA.MaxColor())
				}
				if b.DPA.IsBottom(next) {
					continue
				}

				var targetRef int32
				if b.DPA.IsTop(next) {
					targetRef = 0
				} else {
					targetRef = allocRef(envKey{dpaState: next, symState: xp, control: u})
					if resolved[targetRef] == NodeNone {
						push(targetRef)
					}
				}

				ek := [2]int64{int64(targetRef), int64(color)}
				if idx, ok := edgeIndex[ek]; ok {
					edges[idx].output = append(edges[idx].output, u)
				} else {
					edgeIndex[ek] = len(edges)
					edges = append(edges, rawSysEdge{targetRef: targetRef, color: color, output: []int{u}})
				}
			}

			sysID := b.canonicalizeSys(edges, &sysVertices, sysCanon)

			if idx, ok := outIndex[sysID]; ok {
				outgoingIn[idx].Add(xp)
			} else {
				outIndex[sysID] = len(outgoing)
				outgoing = append(outgoing, sysID)
				outgoingIn = append(outgoingIn, intset.Of(xp))
			}
		}

		succIn := make([][]symmodel.State, len(outgoingIn))
		for i, set := range outgoingIn {
			succIn[i] = set.List()
		}
		envVertices = append(envVertices, builderEnvVertex{succSys: outgoing, succIn: succIn})
	}

	// Commit environment vertices into CSR arrays.
	a.envSuccBegin = make([]uint32, len(envVertices)+1)
	for i, v := range envVertices {
		a.envSuccBegin[i+1] = a.envSuccBegin[i] + uint32(len(v.succSys))
		a.envSucc = append(a.envSucc, v.succSys...)
		a.envInput = append(a.envInput, v.succIn...)
	}

	// Commit system vertices into CSR arrays, resolving each raw edge's
	// target ref to its now-final environment id (every ref that was ever
	// pushed was dequeued, since the search only terminates when the
	// queue empties).
	a.sysSuccBegin = make([]uint32, len(sysVertices)+1)
	for i, v := range sysVertices {
		a.sysSuccBegin[i+1] = a.sysSuccBegin[i] + uint32(len(v.edges))
		for _, e := range v.edges {
			target := resolved[e.targetRef]
			if target == NodeNone {
				return a, fmt.Errorf("pgame: %w: reference %d never resolved", ErrDPAInvariantViolation, e.targetRef)
			}
			out := append([]int(nil), e.output...)
			sort.Ints(out)
			a.sysEdges = append(a.sysEdges, SysEdge{Target: target, Color: e.color, Output: out})
		}
	}

	n := len(envVertices)
	m := len(sysVertices)
	a.sysWinner = make([]Winner, m)
	a.envWinner = make([]Winner, n)
	a.sysActive = make([]bool, len(a.sysEdges))
	a.envChoice = make([]int32, n)
	for i := range a.envChoice {
		a.envChoice[i] = -1
	}

	a.initialEnv = resolved[initRef]
	a.complete = true
	if b.Config.Verbosity >= 1 {
		b.Log.Info("pgame: arena construction complete",
			"envVertices", len(envVertices), "sysVertices", len(sysVertices), "sysEdges", len(a.sysEdges))
	}
	return a, nil
}

// builderEnvVertex and builderSysVertex are the construction-time (not
// yet CSR-flattened) representations of arena vertices.
type builderEnvVertex struct {
	succSys []uint32
	succIn  [][]symmodel.State
}

type builderSysVertex struct {
	edges []rawSysEdge
}

// canonicalizeSys looks up (or commits) the system vertex whose raw
// outgoing edges are edges, fusing it with an existing system vertex
// whose edge sequence serializes identically.
func (b *Builder) canonicalizeSys(edges []rawSysEdge, sysVertices *[]builderSysVertex, canon map[string]int32) uint32 {
	key := serializeSysEdges(edges)
	if id, ok := canon[key]; ok {
		b.Metrics.SysVerticesFused.Inc()
		return uint32(id)
	}
	id := int32(len(*sysVertices))
	*sysVertices = append(*sysVertices, builderSysVertex{edges: edges})
	canon[key] = id
	return uint32(id)
}

func serializeSysEdges(edges []rawSysEdge) string {
	var sb strings.Builder
	for i, e := range edges {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, "%d,%d,", e.targetRef, e.color)
		for j, u := range e.output {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%d", u)
		}
	}
	return sb.String()
}
