package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  error
	}{
		{
			name: "negative verbosity",
			cfg:  Config{Verbosity: -1, ScoreHeuristic: FIFOScore},
			err:  ErrInvalidVerbosity,
		},
		{
			name: "nil score heuristic",
			cfg:  Config{Verbosity: 0},
			err:  ErrNilScoreFn,
		},
		{
			name: "custom score heuristic",
			cfg:  Config{Verbosity: 2, ScoreHeuristic: func(int) float64 { return 0 }},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFIFOScoreIsDecreasing(t *testing.T) {
	require.Greater(t, FIFOScore(1), FIFOScore(2))
}
