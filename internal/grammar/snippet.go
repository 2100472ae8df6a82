// Package grammar defines the declarative input of the generator: snippets
// made of tagged phrase groups, the tags they carry, and loaders that read
// them from JSON, YAML or TOML files.
//
// Everything in this package is treated as immutable once loaded. Filters
// that need a different phrase list build a new Group instead of editing one.
package grammar

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownSnippet is returned when a referenced snippet is absent.
	ErrUnknownSnippet = errors.New("unknown snippet")

	// ErrMalformedSnippet is returned when a snippet's groups are missing
	// or are not a sequence.
	ErrMalformedSnippet = errors.New("malformed snippet")
)

// Group is a tagged bundle of candidate phrases.
// A nil Tags slice is read as "no tags"; nothing writes a default back.
type Group struct {
	Tags    []Tag
	Phrases []string
}

// WithPhrases returns a copy of g carrying phrases instead of g.Phrases.
// The tag set is shared, since groups are never mutated.
func (g Group) WithPhrases(phrases []string) Group {
	return Group{Tags: g.Tags, Phrases: phrases}
}

// Snippet is a named, selectable unit of generation.
type Snippet struct {
	Name string

	// Bind marks the snippet as compute-once per model.
	Bind bool

	// Groups is nil when the definition had no groups field at all,
	// which Lookup reports as ErrMalformedSnippet.
	Groups []Group
}

// Phrases returns every declared phrase of the snippet in declaration order.
// Duplicates across groups are reported once.
func (s Snippet) Phrases() []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range s.Groups {
		for _, p := range g.Phrases {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Repository maps snippet names to their definitions.
type Repository map[string]Snippet

// Lookup returns the named snippet after checking it is usable.
func (r Repository) Lookup(name string) (Snippet, error) {
	s, ok := r[name]
	if !ok {
		return Snippet{}, fmt.Errorf("%w: %q", ErrUnknownSnippet, name)
	}
	if s.Groups == nil {
		return Snippet{}, fmt.Errorf("%w: %q has no groups", ErrMalformedSnippet, name)
	}
	return s, nil
}

// Bound reports whether name refers to a bind-flagged snippet.
// Unknown names are not bound.
func (r Repository) Bound(name string) bool {
	s, ok := r[name]
	return ok && s.Bind
}

// Names returns the snippet names in sorted order.
func (r Repository) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every snippet up front and joins all problems found.
// The generator does not require this; it validates lazily per call.
func (r Repository) Validate() error {
	var errs []error
	for _, name := range r.Names() {
		if _, err := r.Lookup(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
