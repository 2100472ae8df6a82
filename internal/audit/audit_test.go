package audit

import (
	"context"
	"path/filepath"
	"testing"

	"improv/internal/grammar"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo() grammar.Repository {
	return grammar.Repository{
		"pet": {Name: "pet", Groups: []grammar.Group{
			{Tags: []grammar.Tag{{"animal", "dog"}}, Phrases: []string{"dog", "puppy"}},
			{Phrases: []string{"cat"}},
		}},
		"empty": {Name: "empty", Groups: []grammar.Group{}},
	}
}

func TestNew_SeedsEveryPhrase(t *testing.T) {
	want := Snapshot{
		"pet":   {"dog": 0, "puppy": 0, "cat": 0},
		"empty": {},
	}
	if diff := cmp.Diff(want, New(testRepo()).Snapshot()); diff != "" {
		t.Errorf("seed mismatch (-want +got):\n%s", diff)
	}
}

func TestIncrement(t *testing.T) {
	l := New(testRepo())
	for range 5 {
		l.Increment("pet", "cat")
	}
	l.Increment("other", "x")

	snap := l.Snapshot()
	assert.Equal(t, 5, snap["pet"]["cat"])
	assert.Equal(t, 0, snap["pet"]["dog"])
	assert.Equal(t, 1, snap["other"]["x"])

	// Snapshots are copies.
	snap["pet"]["cat"] = 100
	assert.Equal(t, 5, l.Snapshot()["pet"]["cat"])
}

func TestMerge(t *testing.T) {
	l := New(testRepo())
	l.Increment("pet", "dog")
	l.Merge(Snapshot{"pet": {"dog": 2, "cat": 1}, "new": {"n": 4}})

	snap := l.Snapshot()
	assert.Equal(t, 3, snap["pet"]["dog"])
	assert.Equal(t, 1, snap["pet"]["cat"])
	assert.Equal(t, 4, snap["new"]["n"])
}

func TestReport(t *testing.T) {
	snap := Snapshot{
		"pet":   {"dog": 2, "cat": 5, "puppy": 2, "bird": 0},
		"color": {"red": 1},
	}
	want := []SnippetReport{
		{Snippet: "color", Phrases: []PhraseCount{{"red", 1}}},
		{Snippet: "pet", Phrases: []PhraseCount{{"cat", 5}, {"dog", 2}, {"puppy", 2}, {"bird", 0}}},
	}
	if diff := cmp.Diff(want, snap.Report()); diff != "" {
		t.Errorf("Report mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, map[string][]string{"pet": {"bird"}}, snap.Unused())
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	snap := Snapshot{"pet": {"dog": 3, "cat": 0}, "color": {"red": 1}}
	id, err := s.Save(ctx, "first", snap)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}

	second, err := s.Save(ctx, "second", Snapshot{"pet": {"dog": 1}})
	require.NoError(t, err)
	assert.NotEqual(t, id, second)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	totals := map[string]int{runs[0].Label: runs[0].Total, runs[1].Label: runs[1].Total}
	assert.Equal(t, map[string]int{"first": 4, "second": 1}, totals)

	_, err = s.Load(ctx, "no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_Memory(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	id, err := s.Save(context.Background(), "", Snapshot{"a": {"b": 1}})
	require.NoError(t, err)
	got, err := s.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, got["a"]["b"])
}
