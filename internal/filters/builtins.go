package filters

import (
	"slices"

	"improv/internal/grammar"
	"improv/internal/model"
)

// Mismatch vetoes a group when any of its tags shares a category with a
// model tag and the two disagree.
func Mismatch() Filter {
	return func(g grammar.Group, m *model.Model) Result {
		modelTags := m.Tags()
		for _, gt := range g.Tags {
			mt, ok := grammar.FindCategory(modelTags, gt.Category())
			if !ok {
				continue
			}
			if grammar.Compare(gt, mt) == grammar.Mismatch {
				return Veto()
			}
		}
		return Score(0)
	}
}

// PartialBonus rewards group tags that partially match a model tag.
// Without cumulative the bonus is flat; with it, bonus is paid per match.
func PartialBonus(bonus float64, cumulative bool) Filter {
	return matchBonus(grammar.Partial, bonus, cumulative)
}

// FullBonus rewards group tags that exactly match a model tag.
func FullBonus(bonus float64, cumulative bool) Filter {
	return matchBonus(grammar.Exact, bonus, cumulative)
}

func matchBonus(want grammar.Comparison, bonus float64, cumulative bool) Filter {
	return func(g grammar.Group, m *model.Model) Result {
		modelTags := m.Tags()
		matches := 0
		for _, gt := range g.Tags {
			mt, ok := grammar.FindCategory(modelTags, gt.Category())
			if ok && grammar.Compare(gt, mt) == want {
				matches++
			}
		}
		switch {
		case matches == 0:
			return Score(0)
		case cumulative:
			return Score(bonus * float64(matches))
		default:
			return Score(bonus)
		}
	}
}

// Dryness drops phrases already in the model history. The replacement
// group may end up empty; salience discards it later.
func Dryness() Filter {
	return func(g grammar.Group, m *model.Model) Result {
		history := m.History()
		fresh := make([]string, 0, len(g.Phrases))
		for _, p := range g.Phrases {
			if !slices.Contains(history, p) {
				fresh = append(fresh, p)
			}
		}
		return Replace(0, g.WithPhrases(fresh))
	}
}

// Unmentioned pays bonus when the group has a tag whose category has never
// appeared in the tag history. Untagged groups score 0.
func Unmentioned(bonus float64) Filter {
	return func(g grammar.Group, m *model.Model) Result {
		if len(g.Tags) == 0 {
			return Score(0)
		}
		seen := m.TagHistory()
		for _, t := range g.Tags {
			if _, ok := grammar.FindCategory(seen, t.Category()); !ok {
				return Score(bonus)
			}
		}
		return Score(0)
	}
}
