// Package filters scores candidate groups against the generation model.
//
// A Filter looks at one group and the model and either contributes a score
// delta, vetoes the group outright, or contributes a delta and hands a
// replacement group to the filters after it. Groups are never edited in
// place; a filter that wants fewer phrases returns a new Group.
package filters

import (
	"improv/internal/grammar"
	"improv/internal/model"
)

// Filter evaluates a single group.
type Filter func(g grammar.Group, m *model.Model) Result

// Result is the outcome of one filter.
type Result struct {
	Delta   float64
	Vetoed  bool
	Group   grammar.Group
	Replace bool
}

// Score contributes delta and leaves the group as is.
func Score(delta float64) Result {
	return Result{Delta: delta}
}

// Veto excludes the group; later filters are skipped.
func Veto() Result {
	return Result{Vetoed: true}
}

// Replace contributes delta and substitutes g for the rest of the pipeline.
func Replace(delta float64, g grammar.Group) Result {
	return Result{Delta: delta, Group: g, Replace: true}
}

// Scored pairs a (possibly replaced) group with its accumulated score.
type Scored struct {
	Group grammar.Group
	Score float64
}

// Apply threads g through filters in order. The bool is false when a
// filter vetoed the group.
func Apply(filters []Filter, g grammar.Group, m *model.Model) (Scored, bool) {
	out := Scored{Group: g}
	for _, f := range filters {
		r := f(out.Group, m)
		if r.Vetoed {
			return Scored{}, false
		}
		if r.Replace {
			out.Group = r.Group
		}
		out.Score += r.Delta
	}
	return out, true
}

// ApplyAll scores every group and drops the vetoed ones, keeping the
// declared order.
func ApplyAll(filters []Filter, groups []grammar.Group, m *model.Model) []Scored {
	scored := make([]Scored, 0, len(groups))
	for _, g := range groups {
		if s, ok := Apply(filters, g, m); ok {
			scored = append(scored, s)
		}
	}
	return scored
}
