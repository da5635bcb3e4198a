package pgame

import (
	"bufio"
	"fmt"
	"io"
)

// WritePGSolver exports arena in the PGSolver text format, for feeding
// into third-party parity-game solvers or visualizers as a debugging
// aid. PGSolver nodes carry one priority each, but this arena's colors
// live on system edges; each system edge is therefore expanded into an
// intermediate single-successor node carrying that edge's color, and the
// NODE_TOP sentinel is materialized as one extra self-looping node with
// priority 0 (an even, system-favorable color, matching NODE_TOP's
// absorbing-accept meaning).
func WritePGSolver(w io.Writer, a *Arena) error {
	if !a.Complete() {
		return fmt.Errorf("pgame: cannot export an incomplete arena")
	}
	bw := bufio.NewWriter(w)

	nEnv := a.NEnv()
	nSys := a.NSys()
	nSysEdges := len(a.sysEdges)
	topNode := nEnv + nSys + nSysEdges
	maxNode := topNode

	fmt.Fprintf(bw, "parity %d;\n", maxNode)

	for v := 0; v < nEnv; v++ {
		begin, end := a.EnvSuccessors(uint32(v))
		succs := make([]int, 0, end-begin)
		for e := begin; e < end; e++ {
			succs = append(succs, nEnv+int(a.EnvSuccSys(e)))
		}
		writePGSolverNode(bw, v, 0, 1, succs)
	}

	for s := 0; s < nSys; s++ {
		begin, end := a.SysSuccessors(uint32(s))
		succs := make([]int, 0, end-begin)
		for e := begin; e < end; e++ {
			succs = append(succs, nEnv+nSys+int(e))
		}
		writePGSolverNode(bw, nEnv+s, 0, 0, succs)
	}

	for e := 0; e < nSysEdges; e++ {
		edge := a.sysEdges[e]
		target := edge.Target
		var t int
		if target == NodeTop {
			t = topNode
		} else {
			t = int(target)
		}
		writePGSolverNode(bw, nEnv+nSys+e, int(edge.Color), 0, []int{t})
	}

	writePGSolverNode(bw, topNode, 0, 0, []int{topNode})

	return bw.Flush()
}

func writePGSolverNode(bw *bufio.Writer, id, priority, owner int, succs []int) {
	fmt.Fprintf(bw, "%d %d %d ", id, priority, owner)
	for i, s := range succs {
		if i > 0 {
			bw.WriteByte(',')
		}
		fmt.Fprintf(bw, "%d", s)
	}
	bw.WriteString(";\n")
}
