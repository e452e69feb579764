package model

import "strings"

// Likelihood labels as emitted by the detector backend, ordered from least
// to most likely.
const (
	LikelihoodUnknown      = "UNKNOWN"
	LikelihoodVeryUnlikely = "VERY_UNLIKELY"
	LikelihoodUnlikely     = "UNLIKELY"
	LikelihoodPossible     = "POSSIBLE"
	LikelihoodLikely       = "LIKELY"
	LikelihoodVeryLikely   = "VERY_LIKELY"
)

var likelihoodOrdinals = map[string]int{
	LikelihoodUnknown:      0,
	LikelihoodVeryUnlikely: 1,
	LikelihoodUnlikely:     2,
	LikelihoodPossible:     3,
	LikelihoodLikely:       4,
	LikelihoodVeryLikely:   5,
}

// NormalizeLikelihood strips any qualifier prefix from a likelihood value so
// "Likelihood.VERY_LIKELY" and "VERY_LIKELY" both normalize to "VERY_LIKELY".
// Unrecognized values are returned stripped but otherwise untouched.
func NormalizeLikelihood(v string) string {
	if i := strings.LastIndex(v, "."); i >= 0 {
		v = v[i+1:]
	}
	return v
}

// LikelihoodOrdinal maps a likelihood label to its position in the ordered
// enumeration (UNKNOWN=0 .. VERY_LIKELY=5). The value is normalized first;
// unknown labels map to 0.
func LikelihoodOrdinal(v string) int {
	return likelihoodOrdinals[NormalizeLikelihood(v)]
}
