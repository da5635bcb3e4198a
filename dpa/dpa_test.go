package dpa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// loopFactory is a trivial 1-state DPA: every letter self-loops at color 0,
// parity EVEN, every variable USED. It stands in for the upstream
// LTL-to-DPA translator in tests.
type loopFactory struct {
	alphabetSize int
	maxColor     Color
	parity       Parity
	accept       Acceptance
}

func (f *loopFactory) Initial() []int32 { return []int32{0} }

func (f *loopFactory) Successor(state []int32, letter Letter) ([]int32, Color, float64, error) {
	return []int32{0}, 0, 1.0, nil
}

func (f *loopFactory) IsTop(state []int32) bool    { return false }
func (f *loopFactory) IsBottom(state []int32) bool { return false }
func (f *loopFactory) Acceptance() Acceptance       { return f.accept }
func (f *loopFactory) MaxColor() Color              { return f.maxColor }
func (f *loopFactory) Parity() Parity               { return f.parity }
func (f *loopFactory) VariableStatus(i int) VarStatus { return Used }

func TestBuild_UnsupportedAcceptance(t *testing.T) {
	f := &loopFactory{alphabetSize: 1, accept: AcceptUnsupported}
	_, err := Build(f, 1)
	require.ErrorIs(t, err, ErrUnsupportedAcceptance)
}

func TestBuild_SingleStateSelfLoop(t *testing.T) {
	f := &loopFactory{alphabetSize: 2, accept: AcceptParity, parity: Even}
	d, err := Build(f, 2)
	require.NoError(t, err)
	require.Equal(t, 1, d.StateCount())
	require.Equal(t, StateID(0), d.Initial())

	for l := Letter(0); l < 4; l++ {
		next, color, score, err := d.Successor(d.Initial(), l)
		require.NoError(t, err)
		require.Equal(t, StateID(0), next)
		require.Equal(t, Color(0), color)
		require.Equal(t, 1.0, score)
	}
}

func TestSuccessor_InvalidLetter(t *testing.T) {
	f := &loopFactory{alphabetSize: 1, accept: AcceptSafety}
	d, err := Build(f, 1)
	require.NoError(t, err)
	_, _, _, err = d.Successor(d.Initial(), Letter(2))
	require.ErrorIs(t, err, ErrInvalidLetter)
}

// branchFactory builds a small 2-state reachable automaton (letter 0 stays,
// letter 1 advances), exercising the BFS discovery queue and
// canonicalization.
type branchFactory struct{}

func (branchFactory) Initial() []int32 { return []int32{0} }
func (branchFactory) Successor(state []int32, letter Letter) ([]int32, Color, float64, error) {
	if state[0] == 0 && letter == 1 {
		return []int32{1}, 1, 0.5, nil
	}
	return []int32{state[0]}, 0, 1.0, nil
}
func (branchFactory) IsTop(state []int32) bool      { return state[0] == 1 }
func (branchFactory) IsBottom(state []int32) bool   { return false }
func (branchFactory) Acceptance() Acceptance         { return AcceptParity }
func (branchFactory) MaxColor() Color                { return 1 }
func (branchFactory) Parity() Parity                 { return Even }
func (branchFactory) VariableStatus(i int) VarStatus { return Used }

func TestBuild_DiscoversReachableStatesOnly(t *testing.T) {
	d, err := Build(branchFactory{}, 1)
	require.NoError(t, err)
	require.Equal(t, 2, d.StateCount())
	require.True(t, d.IsTop(1))
	require.False(t, d.IsTop(0))
}

func TestRoundTrip_WriteThenRead(t *testing.T) {
	d, err := Build(branchFactory{}, 1)
	require.NoError(t, err)
	d.InVars = []int32{0}
	d.OutVars = []int32{}
	d.LTLFormula = "F t"
	d.SimplifiedLTL = true

	var buf bytes.Buffer
	require.NoError(t, WriteTo(&buf, d))

	loaded, err := ReadFrom(&buf)
	require.NoError(t, err)

	require.Equal(t, d.StateCount(), loaded.StateCount())
	require.Equal(t, d.AlphabetSize(), loaded.AlphabetSize())
	require.Equal(t, d.MaxColor(), loaded.MaxColor())
	require.Equal(t, d.Parity(), loaded.Parity())
	require.Equal(t, d.LTLFormula, loaded.LTLFormula)
	require.Equal(t, d.SimplifiedLTL, loaded.SimplifiedLTL)

	for s := StateID(0); int(s) < d.StateCount(); s++ {
		require.Equal(t, d.IsTop(s), loaded.IsTop(s))
		require.Equal(t, d.IsBottom(s), loaded.IsBottom(s))
		for l := Letter(0); int(l) < 1<<d.AlphabetSize(); l++ {
			wantNext, wantColor, wantScore, err := d.Successor(s, l)
			require.NoError(t, err)
			gotNext, gotColor, gotScore, err := loaded.Successor(s, l)
			require.NoError(t, err)
			require.Equal(t, wantNext, gotNext)
			require.Equal(t, wantColor, gotColor)
			require.Equal(t, wantScore, gotScore)
		}
	}
}

func TestReadFrom_InvalidFile(t *testing.T) {
	_, err := ReadFrom(bytes.NewBufferString("not: a valid\nfile\n"))
	require.Error(t, err)
}
