// Package stats summarises score distributions for the leaderboard.
package stats

import (
	"math"
	"sort"
)

// Summary describes the spread of user scores, in meters
type Summary struct {
	Users  int     `json:"users"`
	Active int     `json:"active"` // users with a non-zero score
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    int64   `json:"max"`
}

// Summarize computes the distribution summary of scores
func Summarize(scores []int64) Summary {
	s := Summary{Users: len(scores)}
	if len(scores) == 0 {
		return s
	}

	sorted := make([]float64, len(scores))
	var sum float64
	for i, v := range scores {
		sorted[i] = float64(v)
		sum += float64(v)
		if v > 0 {
			s.Active++
		}
		if v > s.Max {
			s.Max = v
		}
	}
	sort.Float64s(sorted)

	s.Mean = sum / float64(len(sorted))
	s.Median = quantileSorted(sorted, 0.5)
	s.P90 = quantileSorted(sorted, 0.9)
	return s
}

// Quantile calculates the q-th quantile (0 <= q <= 1) with linear
// interpolation between closest ranks.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q)
}

func quantileSorted(sorted []float64, q float64) float64 {
	q = math.Max(0, math.Min(1, q))

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// PercentileRank returns the share of scores at or below score, in percent
func PercentileRank(scores []int64, score int64) float64 {
	if len(scores) == 0 {
		return 0
	}
	count := 0
	for _, v := range scores {
		if v <= score {
			count++
		}
	}
	return float64(count) / float64(len(scores)) * 100
}
