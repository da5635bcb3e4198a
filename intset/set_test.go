package intset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	require := require.New(t)

	s := Of(1, 2)
	require.Equal(2, s.Len())
	require.True(s.Contains(1))
	require.False(s.Contains(3))

	s.Add(3)
	require.True(s.Contains(3))

	other := Of(3, 4)
	s.Union(other)
	require.Equal(4, s.Len())
	require.True(s.Contains(4))

	require.ElementsMatch([]int{1, 2, 3, 4}, s.List())
	require.True(s.Equals(Of(4, 3, 2, 1)))
	require.False(s.Equals(other))

	s.Clear()
	require.Equal(0, s.Len())
}

func TestSet_NilAdd(t *testing.T) {
	var s Set[int]
	s.Add(7)
	require.True(t, s.Contains(7))
}
