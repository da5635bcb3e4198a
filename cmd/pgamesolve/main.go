// Command pgamesolve reads a total DPA and a tiny flag-described
// symbolic model, constructs the arena, solves it, and prints a
// one-line-per-vertex strategy table to stdout. It is a thin flag-based
// entry point around the library, not a format of its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/omegasynth/pgame/config"
	"github.com/omegasynth/pgame/dpa"
	"github.com/omegasynth/pgame/metrics"
	"github.com/omegasynth/pgame/pgame"
	"github.com/omegasynth/pgame/solver"
	"github.com/omegasynth/pgame/specadapter"
)

// exit codes
const (
	exitRealizable   = 0
	exitUnrealizable = 1
	exitEngineError  = 2
)

// postFlag accumulates repeated -post state,control=succ1:succ2:... flags.
type postFlag struct {
	posts map[[2]int][]int
}

func (p *postFlag) String() string { return "" }

func (p *postFlag) Set(s string) error {
	if p.posts == nil {
		p.posts = make(map[[2]int][]int)
	}
	eq := strings.SplitN(s, "=", 2)
	if len(eq) != 2 {
		return fmt.Errorf("-post must be state,control=succ1:succ2:...")
	}
	sc := strings.SplitN(eq[0], ",", 2)
	if len(sc) != 2 {
		return fmt.Errorf("-post key must be state,control")
	}
	state, err := strconv.Atoi(sc[0])
	if err != nil {
		return err
	}
	control, err := strconv.Atoi(sc[1])
	if err != nil {
		return err
	}
	var succs []int
	if eq[1] != "" {
		for _, tok := range strings.Split(eq[1], ":") {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return err
			}
			succs = append(succs, v)
		}
	}
	p.posts[[2]int{state, control}] = succs
	return nil
}

// labelFlag accumulates repeated -state-label/-control-label index=mask flags.
type labelFlag struct {
	labels map[int]uint64
}

func (l *labelFlag) String() string { return "" }

func (l *labelFlag) Set(s string) error {
	if l.labels == nil {
		l.labels = make(map[int]uint64)
	}
	eq := strings.SplitN(s, "=", 2)
	if len(eq) != 2 {
		return fmt.Errorf("label flag must be index=mask")
	}
	idx, err := strconv.Atoi(eq[0])
	if err != nil {
		return err
	}
	mask, err := strconv.ParseUint(eq[1], 0, 64)
	if err != nil {
		return err
	}
	l.labels[idx] = mask
	return nil
}

type cliModel struct {
	nStates    int
	nControls  int
	initial    []int
	posts      map[[2]int][]int
}

func (m *cliModel) InitialStates() []int { return m.initial }
func (m *cliModel) NStates() int         { return m.nStates }
func (m *cliModel) NControls() int       { return m.nControls }
func (m *cliModel) Posts(state, control int) ([]int, error) {
	return m.posts[[2]int{state, control}], nil
}

type cliLabeler struct {
	stateLabels   map[int]uint64
	controlLabels map[int]uint64
}

func (l *cliLabeler) StateLabel(x int) (uint64, error)   { return l.stateLabels[x], nil }
func (l *cliLabeler) ControlLabel(u int) (uint64, error) { return l.controlLabels[u], nil }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("pgamesolve", flag.ContinueOnError)
	dpaPath := fs.String("dpa", "", "path to a DPA in the persisted text format")
	nStates := fs.Int("n-states", 0, "number of symbolic model states")
	nControls := fs.Int("n-controls", 0, "number of symbolic model controls")
	nStateAPs := fs.Int("n-state-aps", 0, "number of state atomic propositions")
	initial := fs.String("initial", "", "comma-separated initial state indices")
	verbosity := fs.Int("verbosity", 0, "builder/solver log level: 0=silent, 1=phases, 2=per-vertex (this command attaches no logger, so nothing is printed)")
	var posts postFlag
	fs.Var(&posts, "post", "state,control=succ1:succ2:... (repeatable)")
	var stateLabels labelFlag
	fs.Var(&stateLabels, "state-label", "state=bitmask (repeatable)")
	var controlLabels labelFlag
	fs.Var(&controlLabels, "control-label", "control=bitmask (repeatable)")

	if err := fs.Parse(args); err != nil {
		return exitEngineError
	}
	if *dpaPath == "" {
		fmt.Fprintln(os.Stderr, "pgamesolve: -dpa is required")
		return exitEngineError
	}

	f, err := os.Open(*dpaPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgamesolve:", err)
		return exitEngineError
	}
	defer f.Close()

	d, err := dpa.ReadFrom(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgamesolve: reading DPA:", err)
		return exitEngineError
	}

	var initStates []int
	if *initial != "" {
		for _, tok := range strings.Split(*initial, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				fmt.Fprintln(os.Stderr, "pgamesolve: -initial:", err)
				return exitEngineError
			}
			initStates = append(initStates, v)
		}
	}

	model := &cliModel{nStates: *nStates, nControls: *nControls, initial: initStates, posts: posts.posts}
	labeler := &cliLabeler{stateLabels: stateLabels.labels, controlLabels: controlLabels.labels}
	adapter := specadapter.New(d, labeler, *nStateAPs)

	cfg := config.DefaultConfig()
	cfg.Verbosity = *verbosity
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "pgamesolve: invalid configuration:", err)
		return exitEngineError
	}

	m := metrics.Noop()

	builder := &pgame.Builder{DPA: d, Adapter: adapter, Model: model, Config: cfg, Metrics: m}
	arena, err := builder.ConstructArena(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgamesolve: building arena:", err)
		return exitEngineError
	}

	sv := &solver.Solver{Arena: arena, Parity: d.Parity(), Config: cfg, Metrics: m}
	winner, err := sv.Solve(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgamesolve: solving:", err)
		return exitEngineError
	}

	printStrategyTable(os.Stdout, arena)

	if winner == pgame.Sys {
		fmt.Println("REALIZABLE")
		return exitRealizable
	}
	fmt.Println("UNREALIZABLE")
	return exitUnrealizable
}

func printStrategyTable(w *os.File, a *pgame.Arena) {
	for v := 0; v < a.NEnv(); v++ {
		choice, ok := a.EnvChoice(uint32(v))
		fmt.Fprintf(w, "env %d winner=%s choice=%v has_choice=%t\n", v, a.EnvWinner(uint32(v)), choice, ok)
	}
	for s := 0; s < a.NSys(); s++ {
		begin, end := a.SysSuccessors(uint32(s))
		var active []uint32
		for e := begin; e < end; e++ {
			if a.SysActive(e) {
				active = append(active, e)
			}
		}
		fmt.Fprintf(w, "sys %d winner=%s active_edges=%v\n", s, a.SysWinner(uint32(s)), active)
	}
}
