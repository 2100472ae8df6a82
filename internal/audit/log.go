// Package audit counts how often each declared phrase is chosen, so that a
// grammar author can spot phrases that never come up. The log observes
// selections and never feeds back into them.
package audit

import (
	"maps"
	"sort"
	"sync"

	"improv/internal/grammar"
)

// Snapshot maps snippet name to phrase to use count.
type Snapshot map[string]map[string]int

// Log is a phrase usage counter seeded from a repository.
type Log struct {
	mu     sync.Mutex
	counts Snapshot
}

// New seeds a counter of 0 for every phrase of every snippet in repo,
// whether or not it will ever be chosen.
func New(repo grammar.Repository) *Log {
	counts := make(Snapshot, len(repo))
	for name, s := range repo {
		phrases := make(map[string]int)
		for _, g := range s.Groups {
			for _, p := range g.Phrases {
				phrases[p] = 0
			}
		}
		counts[name] = phrases
	}
	return &Log{counts: counts}
}

// Increment records one selection of phrase from snippet.
func (l *Log) Increment(snippet, phrase string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	phrases, ok := l.counts[snippet]
	if !ok {
		phrases = make(map[string]int)
		l.counts[snippet] = phrases
	}
	phrases[phrase]++
}

// Merge adds every count in other to the log.
func (l *Log) Merge(other Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for snippet, phrases := range other {
		dst, ok := l.counts[snippet]
		if !ok {
			dst = make(map[string]int, len(phrases))
			l.counts[snippet] = dst
		}
		for p, n := range phrases {
			dst[p] += n
		}
	}
}

// Snapshot returns a copy of the counts.
func (l *Log) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts.Clone()
}

// Clone deep-copies s.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for snippet, phrases := range s {
		out[snippet] = maps.Clone(phrases)
	}
	return out
}

// PhraseCount is one row of a report.
type PhraseCount struct {
	Phrase string
	Count  int
}

// SnippetReport lists a snippet's phrases, most used first.
type SnippetReport struct {
	Snippet string
	Phrases []PhraseCount
}

// Report orders s by snippet name, and each snippet's phrases by
// descending count, ties broken alphabetically.
func (s Snapshot) Report() []SnippetReport {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	report := make([]SnippetReport, 0, len(names))
	for _, name := range names {
		rows := make([]PhraseCount, 0, len(s[name]))
		for p, n := range s[name] {
			rows = append(rows, PhraseCount{Phrase: p, Count: n})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Count != rows[j].Count {
				return rows[i].Count > rows[j].Count
			}
			return rows[i].Phrase < rows[j].Phrase
		})
		report = append(report, SnippetReport{Snippet: name, Phrases: rows})
	}
	return report
}

// Unused lists, per snippet, the phrases that were never chosen.
func (s Snapshot) Unused() map[string][]string {
	out := make(map[string][]string)
	for snippet, phrases := range s {
		for p, n := range phrases {
			if n == 0 {
				out[snippet] = append(out[snippet], p)
			}
		}
		sort.Strings(out[snippet])
	}
	return out
}
