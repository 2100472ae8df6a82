package selection

import (
	"errors"
	"fmt"
	"math"

	"improv/internal/filters"
	"improv/internal/grammar"
	"improv/internal/model"
)

// ErrExhaustedCandidates is returned when filtering left nothing to choose.
var ErrExhaustedCandidates = errors.New("ran out of phrases")

// Candidate is one phrase together with the tag set of its group.
type Candidate struct {
	Phrase string
	Tags   []grammar.Tag
}

// Flatten expands groups into candidates, in group then phrase order.
func Flatten(groups []filters.Scored) []Candidate {
	var out []Candidate
	for _, g := range groups {
		for _, p := range g.Group.Phrases {
			out = append(out, Candidate{Phrase: p, Tags: g.Group.Tags})
		}
	}
	return out
}

// Selector picks among candidates.
type Selector struct {
	// Rand returns a float in [0, 1).
	Rand func() float64

	// Reincorporate merges the chosen tags into the model's tags.
	Reincorporate bool
}

// Choose picks floor(Rand() * n) and records the choice on m: the tag set
// is prepended to the tag history and the phrase to the history.
func (s Selector) Choose(snippet string, candidates []Candidate, m *model.Model) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("%w for snippet %q", ErrExhaustedCandidates, snippet)
	}

	i := int(math.Floor(s.Rand() * float64(len(candidates))))
	i = max(0, min(i, len(candidates)-1))
	chosen := candidates[i]

	if s.Reincorporate {
		m.MergeTags(chosen.Tags)
	}
	m.RecordTags(chosen.Tags)
	m.RecordPhrase(chosen.Phrase)
	return chosen, nil
}
