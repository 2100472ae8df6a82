package grammar

import "strings"

// Tag is a hierarchical path used for contextual matching.
// Element 0 is the category; the remaining elements refine it from
// general to specific, e.g. ["government", "autocracy", "monarchy"].
type Tag []string

// Category returns the tag's category key, or "" for an empty tag.
func (t Tag) Category() string {
	if len(t) == 0 {
		return ""
	}
	return t[0]
}

// String renders the tag in directive form ("|a|b").
func (t Tag) String() string {
	return "|" + strings.Join(t, "|")
}

// Clone returns a copy that shares no backing array with t.
func (t Tag) Clone() Tag {
	if t == nil {
		return nil
	}
	out := make(Tag, len(t))
	copy(out, t)
	return out
}

// Comparison classifies the relationship between two tags.
type Comparison int

const (
	// Mismatch means the tags disagree somewhere in their shared prefix,
	// or have the same length with different content.
	Mismatch Comparison = iota

	// Partial means one tag is a strict refinement of the other.
	Partial

	// Exact means the tags are element-for-element equal.
	Exact
)

func (c Comparison) String() string {
	switch c {
	case Exact:
		return "exact"
	case Partial:
		return "partial"
	default:
		return "mismatch"
	}
}

// Compare classifies a and b. It is pure and total.
func Compare(a, b Tag) Comparison {
	if len(a) == len(b) {
		for i := range a {
			if a[i] != b[i] {
				return Mismatch
			}
		}
		return Exact
	}

	shorter, longer := a, b
	if len(b) < len(a) {
		shorter, longer = b, a
	}
	for i, el := range shorter {
		if el != longer[i] {
			return Mismatch
		}
	}
	return Partial
}

// FindCategory returns the first tag in tags whose category matches
// category, and whether one was found.
func FindCategory(tags []Tag, category string) (Tag, bool) {
	for _, t := range tags {
		if t.Category() == category {
			return t, true
		}
	}
	return nil, false
}

// ParseTag builds a tag from a pipe-delimited string such as "mood|bright"
// or "|mood|bright". Empty segments are dropped.
func ParseTag(s string) Tag {
	var tag Tag
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag = append(tag, part)
	}
	return tag
}
