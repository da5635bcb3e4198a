package colorbag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBag(t *testing.T) {
	tests := []struct {
		name           string
		elements       []int
		expectedCounts map[int]int
	}{
		{
			name:           "empty",
			elements:       nil,
			expectedCounts: map[int]int{},
		},
		{
			name:     "unique elements",
			elements: []int{1, 2, 3},
			expectedCounts: map[int]int{
				1: 1,
				2: 1,
				3: 1,
			},
		},
		{
			name:     "duplicate elements",
			elements: []int{0, 2, 0, 2, 0},
			expectedCounts: map[int]int{
				0: 3,
				2: 2,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			b := New[int]()
			for _, e := range tt.elements {
				b.Add(e)
			}

			require.Equal(len(tt.elements), b.Len())
			require.Equal(len(tt.expectedCounts), b.Distinct())
			for e, count := range tt.expectedCounts {
				require.Equal(count, b.Count(e))
			}
			require.Len(b.List(), len(tt.expectedCounts))
		})
	}
}

func TestBag_ZeroValueAdd(t *testing.T) {
	var b Bag[string]
	b.Add("x")
	require.Equal(t, 1, b.Count("x"))
	require.Equal(t, 0, b.Count("y"))
}
