package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Tag
		want Comparison
	}{
		{"equal single", Tag{"mood"}, Tag{"mood"}, Exact},
		{"equal deep", Tag{"gov", "autocracy", "monarchy"}, Tag{"gov", "autocracy", "monarchy"}, Exact},
		{"same length differing", Tag{"mood", "dark"}, Tag{"mood", "bright"}, Mismatch},
		{"same length differing category", Tag{"a"}, Tag{"b"}, Mismatch},
		{"prefix shorter first", Tag{"gov"}, Tag{"gov", "monarchy"}, Partial},
		{"prefix longer first", Tag{"gov", "monarchy", "absolute"}, Tag{"gov", "monarchy"}, Partial},
		{"shared prefix mismatch", Tag{"gov", "democracy"}, Tag{"gov", "autocracy", "monarchy"}, Mismatch},
		{"both empty", Tag{}, Tag{}, Exact},
		{"empty is prefix of anything", Tag{}, Tag{"x"}, Partial},
		// Ordering is by length, not lexical order of the elements.
		{"lexically larger but shorter", Tag{"z"}, Tag{"z", "a"}, Partial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
			assert.Equal(t, tt.want, Compare(tt.b, tt.a), "Compare must be symmetric")
		})
	}
}

func TestParseTag(t *testing.T) {
	assert.Equal(t, Tag{"mood", "bright"}, ParseTag("|mood|bright"))
	assert.Equal(t, Tag{"mood", "bright"}, ParseTag("mood|bright"))
	assert.Equal(t, Tag{"a", "b"}, ParseTag("|a||b|"))
	assert.Nil(t, ParseTag(""))
}

func TestFindCategory(t *testing.T) {
	tags := []Tag{{"economy", "tourism"}, {"decline"}}

	got, ok := FindCategory(tags, "decline")
	assert.True(t, ok)
	assert.Equal(t, Tag{"decline"}, got)

	_, ok = FindCategory(tags, "war")
	assert.False(t, ok)
}

func TestTagHelpers(t *testing.T) {
	tag := Tag{"mood", "dark"}
	assert.Equal(t, "mood", tag.Category())
	assert.Equal(t, "", Tag{}.Category())
	assert.Equal(t, "|mood|dark", tag.String())

	clone := tag.Clone()
	clone[1] = "bright"
	assert.Equal(t, "dark", tag[1])
	assert.Equal(t, "mismatch", Mismatch.String())
}
