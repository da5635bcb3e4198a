package colordist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		name  string
		v     Value
		delta Value
		want  Value
		err   error
	}{
		{
			name:  "normal addition",
			v:     10,
			delta: 1,
			want:  11,
		},
		{
			name:  "normal subtraction",
			v:     10,
			delta: -1,
			want:  9,
		},
		{
			name:  "positive infinity absorbs",
			v:     PosInf,
			delta: -5,
			want:  PosInf,
		},
		{
			name:  "negative infinity absorbs",
			v:     NegInf,
			delta: 5,
			want:  NegInf,
		},
		{
			name:  "overflow into positive reservation",
			v:     PosInf - 1,
			delta: 1,
			err:   ErrOverflow,
		},
		{
			name:  "overflow into negative reservation",
			v:     NegInf + 1,
			delta: -1,
			err:   ErrOverflow,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Add(tt.v, tt.delta)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name      string
		parityBit int
		colorIdx  int
		want      Value
	}{
		{name: "even parity, even color", parityBit: 0, colorIdx: 0, want: 1},
		{name: "even parity, odd color", parityBit: 0, colorIdx: 1, want: -1},
		{name: "odd parity, even color", parityBit: 1, colorIdx: 0, want: -1},
		{name: "odd parity, odd color", parityBit: 1, colorIdx: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Delta(tt.parityBit, tt.colorIdx))
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want int
	}{
		{
			name: "equal",
			a:    Vector{0, 0},
			b:    Vector{0, 0},
			want: 0,
		},
		{
			name: "first component decides",
			a:    Vector{1, -9},
			b:    Vector{0, 9},
			want: 1,
		},
		{
			name: "later component decides",
			a:    Vector{3, -1},
			b:    Vector{3, 0},
			want: -1,
		},
		{
			name: "positive sentinel dominates",
			a:    PosInfVector(2),
			b:    Vector{1 << 20, 1 << 20},
			want: 1,
		},
		{
			name: "negative sentinel is dominated",
			a:    NegInfVector(2),
			b:    Vector{-(1 << 20), 0},
			want: -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestPaid(t *testing.T) {
	v := Vector{0, 5, 0}

	paid, err := Paid(v, 1, 0)
	require.NoError(t, err)
	require.Equal(t, Vector{0, 4, 0}, paid)
	// the input vector is never mutated
	require.Equal(t, Vector{0, 5, 0}, v)

	paid, err = Paid(v, 2, 0)
	require.NoError(t, err)
	require.Equal(t, Vector{0, 5, 1}, paid)
}

func TestPaid_InfinityAbsorbs(t *testing.T) {
	top := PosInfVector(3)
	paid, err := Paid(top, 1, 0)
	require.NoError(t, err)
	require.Equal(t, top, paid)

	bottom := NegInfVector(3)
	paid, err = Paid(bottom, 2, 1)
	require.NoError(t, err)
	require.Equal(t, bottom, paid)
}

func TestSentinelPredicates(t *testing.T) {
	require.True(t, PosInf.IsPosInf())
	require.True(t, NegInf.IsNegInf())
	require.False(t, Value(0).IsPosInf())
	require.False(t, Value(0).IsNegInf())
	require.True(t, Value(0).Finite())
	require.False(t, PosInf.Finite())

	require.True(t, PosInfVector(2).IsPosInf())
	require.True(t, NegInfVector(2).IsNegInf())
	require.False(t, NewVector(2).IsPosInf())
	require.False(t, NewVector(2).IsNegInf())
}
