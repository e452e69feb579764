package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLikelihood(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare value", "VERY_LIKELY", "VERY_LIKELY"},
		{"enum-qualified value", "Likelihood.VERY_LIKELY", "VERY_LIKELY"},
		{"other qualifier", "SafeSearchAnnotation.Likelihood.POSSIBLE", "POSSIBLE"},
		{"unknown stays put", "WHO_KNOWS", "WHO_KNOWS"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLikelihood(tt.in))
		})
	}
}

func TestLikelihoodOrdinal(t *testing.T) {
	assert.Equal(t, 5, LikelihoodOrdinal("VERY_LIKELY"))
	assert.Equal(t, 5, LikelihoodOrdinal("Likelihood.VERY_LIKELY"))
	assert.Equal(t, 1, LikelihoodOrdinal("VERY_UNLIKELY"))
	assert.Equal(t, 0, LikelihoodOrdinal("UNKNOWN"))
	assert.Equal(t, 0, LikelihoodOrdinal("garbage"))

	// The enumeration must stay strictly ordered.
	order := []string{
		LikelihoodVeryUnlikely,
		LikelihoodUnlikely,
		LikelihoodPossible,
		LikelihoodLikely,
		LikelihoodVeryLikely,
	}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, LikelihoodOrdinal(order[i]), LikelihoodOrdinal(order[i-1]))
	}
}
