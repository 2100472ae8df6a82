// Package selection narrows scored groups down to a single phrase: the
// salience threshold prunes low scorers, and the phrase selector picks one
// candidate uniformly at random and records it on the model.
package selection

import (
	"math"

	"improv/internal/filters"
)

// Formula maps the best score among candidate groups to the minimum score
// a group needs to survive.
type Formula func(maxScore float64) float64

// Identity keeps only the groups at the maximum score.
func Identity(maxScore float64) float64 {
	return maxScore
}

// Offset keeps groups within d of the maximum score.
func Offset(d float64) Formula {
	return func(maxScore float64) float64 {
		return maxScore - d
	}
}

// Fixed keeps every group scoring at least v.
func Fixed(v float64) Formula {
	return func(float64) float64 {
		return v
	}
}

// Salience drops groups without phrases, then keeps those scoring at or
// above formula(max). A nil formula is Identity.
func Salience(groups []filters.Scored, formula Formula) []filters.Scored {
	if formula == nil {
		formula = Identity
	}

	withPhrases := make([]filters.Scored, 0, len(groups))
	maxScore := math.Inf(-1)
	for _, g := range groups {
		if len(g.Group.Phrases) == 0 {
			continue
		}
		withPhrases = append(withPhrases, g)
		maxScore = math.Max(maxScore, g.Score)
	}

	threshold := formula(maxScore)
	kept := withPhrases[:0]
	for _, g := range withPhrases {
		if g.Score >= threshold {
			kept = append(kept, g)
		}
	}
	return kept
}
