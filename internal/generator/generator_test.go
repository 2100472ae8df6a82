package generator

import (
	"errors"
	"strings"
	"testing"

	"improv/internal/filters"
	"improv/internal/grammar"
	"improv/internal/model"
	"improv/internal/selection"
	"improv/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func constant(v float64) func() float64 {
	return func() float64 { return v }
}

func sequence(vals ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := vals[i%len(vals)]
		i++
		return v
	}
}

func phrases(p ...string) []grammar.Group {
	return []grammar.Group{{Phrases: p}}
}

func animals() grammar.Repository {
	return grammar.Repository{
		"test-snippet":    {Name: "test-snippet", Groups: phrases("dog", "cat", "pig")},
		"binding-snippet": {Name: "binding-snippet", Bind: true, Groups: phrases("glue", "cement", "binder")},
		"recur-binding":   {Name: "recur-binding", Bind: true, Groups: phrases("[:binding-snippet]")},
	}
}

func newGenerator(t *testing.T, repo grammar.Repository, mutate func(*Options)) *Generator {
	t.Helper()
	opts := DefaultOptions()
	opts.Rand = constant(0.5)
	if mutate != nil {
		mutate(&opts)
	}
	g, err := New(repo, opts)
	require.NoError(t, err)
	return g
}

func TestNew_RequiresRand(t *testing.T) {
	_, err := New(animals(), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoRand)
}

func TestGenerate_CustomRand(t *testing.T) {
	repo := grammar.Repository{
		"example": {Name: "example", Groups: phrases("foo", "bar", "baz", "quux")},
		"num":     {Name: "num", Groups: phrases("[#1-20]")},
	}

	low := newGenerator(t, repo, func(o *Options) { o.Rand = constant(0) })
	high := newGenerator(t, repo, func(o *Options) { o.Rand = constant(0.9999999) })

	got, err := low.Generate("example", nil)
	require.NoError(t, err)
	assert.Equal(t, "foo", got)

	got, err = low.Generate("num", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	got, err = high.Generate("example", nil)
	require.NoError(t, err)
	assert.Equal(t, "quux", got)

	got, err = high.Generate("num", nil)
	require.NoError(t, err)
	assert.Equal(t, "20", got)
}

func TestGenerate_PicksMiddle(t *testing.T) {
	g := newGenerator(t, animals(), nil)
	got, err := g.Generate("test-snippet", model.New())
	require.NoError(t, err)
	assert.Equal(t, "cat", got)
}

func TestGenerate_Bindings(t *testing.T) {
	t.Run("binds to the model", func(t *testing.T) {
		g := newGenerator(t, animals(), nil)
		m := model.New()
		got, err := g.Generate("binding-snippet", m)
		require.NoError(t, err)
		bound, ok := m.Binding("binding-snippet")
		require.True(t, ok)
		assert.Equal(t, got, bound)
	})

	t.Run("reuses the bound value", func(t *testing.T) {
		g := newGenerator(t, animals(), nil)
		m := model.New()
		m.SetBinding("binding-snippet", "paste")

		first, err := g.Generate("binding-snippet", m)
		require.NoError(t, err)
		second, err := g.Generate("binding-snippet", m)
		require.NoError(t, err)
		assert.Equal(t, "paste", first)
		assert.Equal(t, first, second)
	})

	t.Run("second call hits the cache", func(t *testing.T) {
		g := newGenerator(t, animals(), func(o *Options) { o.Rand = sequence(0, 0.9) })
		m := model.New()
		first, err := g.Generate("binding-snippet", m)
		require.NoError(t, err)
		second, err := g.Generate("binding-snippet", m)
		require.NoError(t, err)
		assert.Equal(t, "glue", first)
		assert.Equal(t, first, second)

		fresh, err := g.Generate("binding-snippet", model.New())
		require.NoError(t, err)
		assert.Equal(t, "binder", fresh)
	})

	t.Run("works recursively", func(t *testing.T) {
		g := newGenerator(t, animals(), nil)
		m := model.New()
		_, err := g.Generate("recur-binding", m)
		require.NoError(t, err)

		outer, _ := m.Binding("recur-binding")
		inner, _ := m.Binding("binding-snippet")
		assert.Equal(t, inner, outer)
		assert.Equal(t, "cement", outer)
	})

	t.Run("unbound snippets are not cached", func(t *testing.T) {
		g := newGenerator(t, animals(), nil)
		m := model.New()
		_, err := g.Generate("test-snippet", m)
		require.NoError(t, err)
		_, ok := m.Binding("test-snippet")
		assert.False(t, ok)
	})
}

func TestGenerate_Submodels(t *testing.T) {
	repo := grammar.Repository{
		"root": {Name: "root", Groups: phrases("[person1:name] and [person2:name] and [>person1:name] ([person1.title])")},
		"name": {Name: "name", Bind: true, Groups: phrases("Ann", "Bob", "Cy")},
	}
	g := newGenerator(t, repo, func(o *Options) {
		o.Rand = sequence(0, 0, 0.5)
		o.Submodeler = func(_ *model.Model, name string) *model.Model {
			return model.FromProps(map[string]any{"title": "the " + name})
		}
	})

	m := model.New()
	got, err := g.Generate("root", m)
	require.NoError(t, err)
	assert.Equal(t, "Ann and Bob and Ann (the person1)", got)

	name, ok := m.Submodel("person1").Binding("name")
	require.True(t, ok)
	assert.Equal(t, "Ann", name)
	_, ok = m.Binding("name")
	assert.False(t, ok, "the parent model does not bind a submodel's value")
}

func TestGenerate_ReincorporationWithTagBranch(t *testing.T) {
	repo := grammar.Repository{
		"root": {Name: "root", Groups: phrases("[:phrase], [|mood|bright:phrase], [:phrase]")},
		"phrase": {Name: "phrase", Groups: []grammar.Group{
			{Tags: []grammar.Tag{{"mood", "dark"}}, Phrases: []string{"dark phrase"}},
			{Tags: []grammar.Tag{{"mood", "bright"}}, Phrases: []string{"bright phrase"}},
		}},
	}
	g := newGenerator(t, repo, func(o *Options) {
		o.Rand = constant(0)
		o.Reincorporate = true
		o.Filters = []filters.Filter{filters.Mismatch()}
	})

	m := model.New()
	m.SetTags([]grammar.Tag{{"mood", "dark"}})
	got, err := g.Generate("root", m)
	require.NoError(t, err)
	assert.Equal(t, "dark phrase, bright phrase, dark phrase", got)
	assert.Equal(t, []grammar.Tag{{"mood", "dark"}}, m.Tags())
}

func TestGenerate_TagBranchSharesGenerationTree(t *testing.T) {
	people := phrases("Ann", "Bob")

	t.Run("binding made in a branch is reused", func(t *testing.T) {
		repo := grammar.Repository{
			"root": {Name: "root", Groups: phrases("[|mood|x:hero] / [:hero]")},
			"hero": {Name: "hero", Bind: true, Groups: people},
		}
		g := newGenerator(t, repo, func(o *Options) { o.Rand = sequence(0, 0, 0.9) })

		got, err := g.Generate("root", nil)
		require.NoError(t, err)
		assert.Equal(t, "Ann / Ann", got)
	})

	t.Run("submodel made in a branch is reused", func(t *testing.T) {
		repo := grammar.Repository{
			"root":  {Name: "root", Groups: phrases("[|mood|x:intro] / [p:name]")},
			"intro": {Name: "intro", Groups: phrases("[p:name]")},
			"name":  {Name: "name", Bind: true, Groups: people},
		}
		g := newGenerator(t, repo, func(o *Options) { o.Rand = sequence(0, 0, 0.9) })

		m := model.New()
		got, err := g.Generate("root", m)
		require.NoError(t, err)
		assert.Equal(t, "Ann / Ann", got)
		assert.True(t, m.HasSubmodel("p"))
	})

	t.Run("branch choices reach the session history", func(t *testing.T) {
		repo := grammar.Repository{
			"root": {Name: "root", Groups: phrases("[|mood|x:w]")},
			"w":    {Name: "w", Groups: phrases("wolf")},
		}
		g := newGenerator(t, repo, nil)

		got, err := g.Generate("root", nil)
		require.NoError(t, err)
		assert.Equal(t, "wolf", got)
		assert.Equal(t, []string{"wolf", "[|mood|x:w]"}, g.History())
	})
}

func TestGenerate_Reincorporation(t *testing.T) {
	repo := grammar.Repository{
		"root": {Name: "root", Groups: phrases("[:pet] [:pet]")},
		"pet": {Name: "pet", Groups: []grammar.Group{
			{Tags: []grammar.Tag{{"animal", "dog"}}, Phrases: []string{"dog"}},
			{Tags: []grammar.Tag{{"animal", "cat"}}, Phrases: []string{"cat"}},
		}},
	}
	newGen := func(reincorporate bool) *Generator {
		return newGenerator(t, repo, func(o *Options) {
			o.Rand = sequence(0, 0, 0.9)
			o.Reincorporate = reincorporate
			o.Filters = []filters.Filter{filters.Mismatch()}
		})
	}

	got, err := newGen(true).Generate("root", nil)
	require.NoError(t, err)
	assert.Equal(t, "dog dog", got)

	got, err = newGen(false).Generate("root", nil)
	require.NoError(t, err)
	assert.Equal(t, "dog cat", got)
}

func TestGenerate_MismatchFilter(t *testing.T) {
	repo := grammar.Repository{
		"pet": {Name: "pet", Groups: []grammar.Group{
			{Tags: []grammar.Tag{{"animal", "dog"}}, Phrases: []string{"dog"}},
			{Tags: []grammar.Tag{{"animal", "cat"}}, Phrases: []string{"cat"}},
			{Phrases: []string{"pet rock"}},
		}},
		"badSnippet": {Name: "badSnippet", Groups: phrases("foo")},
	}
	g := newGenerator(t, repo, func(o *Options) {
		o.Rand = constant(0)
		o.Filters = []filters.Filter{filters.Mismatch()}
	})

	for _, animal := range []string{"dog", "cat"} {
		m := model.New()
		m.SetTags([]grammar.Tag{{"animal", animal}})
		got, err := g.Generate("pet", m)
		require.NoError(t, err)
		assert.Equal(t, animal, got)
	}

	got, err := g.Generate("badSnippet", nil)
	require.NoError(t, err)
	assert.Equal(t, "foo", got)
	assert.Nil(t, repo["badSnippet"].Groups[0].Tags, "no default is written back")
}

func TestGenerate_SalienceFormula(t *testing.T) {
	repo := grammar.Repository{
		"pet": {Name: "pet", Groups: []grammar.Group{
			{Tags: []grammar.Tag{{"animal", "dog"}}, Phrases: []string{"dog"}},
			{Phrases: []string{"rock"}},
		}},
	}
	m := func() *model.Model {
		m := model.New()
		m.SetTags([]grammar.Tag{{"animal", "dog"}})
		return m
	}

	strict := newGenerator(t, repo, func(o *Options) {
		o.Rand = constant(0.9)
		o.Filters = []filters.Filter{filters.FullBonus(1, false)}
	})
	got, err := strict.Generate("pet", m())
	require.NoError(t, err)
	assert.Equal(t, "dog", got)

	loose := newGenerator(t, repo, func(o *Options) {
		o.Rand = constant(0.9)
		o.Filters = []filters.Filter{filters.FullBonus(1, false)}
		o.Salience = selection.Offset(1)
	})
	got, err = loose.Generate("pet", m())
	require.NoError(t, err)
	assert.Equal(t, "rock", got)
}

func TestGenerate_Dryness(t *testing.T) {
	repo := grammar.Repository{"word": {Name: "word", Groups: phrases("a", "b")}}
	g := newGenerator(t, repo, func(o *Options) {
		o.Rand = constant(0)
		o.Filters = []filters.Filter{filters.Dryness()}
	})

	first, err := g.Generate("word", nil)
	require.NoError(t, err)
	second, err := g.Generate("word", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string{first, second})

	_, err = g.Generate("word", nil)
	assert.ErrorIs(t, err, selection.ErrExhaustedCandidates)
}

func TestGenerate_Persistence(t *testing.T) {
	t.Run("on", func(t *testing.T) {
		g := newGenerator(t, animals(), nil)
		for range 2 {
			_, err := g.Generate("test-snippet", nil)
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"cat", "cat"}, g.History())
		assert.Empty(t, g.TagHistory())

		g.ClearHistory()
		assert.Empty(t, g.History())
	})

	t.Run("off", func(t *testing.T) {
		g := newGenerator(t, animals(), func(o *Options) { o.Persistence = false })
		m := model.New()
		_, err := g.Generate("test-snippet", m)
		require.NoError(t, err)
		assert.Empty(t, g.History())
		assert.Empty(t, m.History())
	})

	t.Run("session history replaces the model's", func(t *testing.T) {
		g := newGenerator(t, animals(), nil)
		m := model.New()
		m.RecordPhrase("stale")
		_, err := g.Generate("test-snippet", m)
		require.NoError(t, err)
		assert.Equal(t, []string{"cat"}, m.History())
	})
}

func TestGenerate_Templates(t *testing.T) {
	repo := grammar.Repository{
		"root":  {Name: "root", Groups: phrases("Hi, my name is [name], and I own [#1-20] [:pet]s.")},
		"pet":   {Name: "pet", Groups: phrases("cat", "dog", "parakeet")},
		"loud":  {Name: "loud", Groups: phrases("[upcap :pet]")},
		"fails": {Name: "fails", Groups: phrases("[fails :pet]")},
	}
	g := newGenerator(t, repo, func(o *Options) {
		o.Funcs = model.FuncMap{"upcap": strings.ToUpper}
	})

	got, err := g.Generate("root", model.FromProps(map[string]any{"name": "Bob"}))
	require.NoError(t, err)
	assert.Equal(t, "Hi, my name is Bob, and I own 11 dogs.", got)

	got, err = g.Generate("loud", nil)
	require.NoError(t, err)
	assert.Equal(t, "DOG", got)

	_, err = g.Generate("fails", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrUnresolvableFunction)
	assert.Contains(t, err.Error(), `builtin or model property "fails" is not a function`)
}

func TestGenerate_DoesNotLeaveRegistryOnModel(t *testing.T) {
	repo := grammar.Repository{
		"loud":  {Name: "loud", Groups: phrases("[upcap 'dog'] [p:name]")},
		"name":  {Name: "name", Groups: phrases("[who]")},
		"quiet": {Name: "quiet", Groups: phrases("[upcap 'dog']")},
	}
	g := newGenerator(t, repo, func(o *Options) {
		o.Funcs = model.FuncMap{"upcap": strings.ToUpper}
		o.Submodeler = func(*model.Model, string) *model.Model {
			return model.FromProps(map[string]any{"who": "Ann"})
		}
	})

	m := model.New()
	got, err := g.Generate("loud", m)
	require.NoError(t, err)
	assert.Equal(t, "DOG Ann", got)

	assert.Nil(t, m.Funcs())
	assert.Nil(t, m.Submodeler())
	assert.Nil(t, m.Submodel("p").Funcs(), "submodels do not keep the generator's registry")

	other := newGenerator(t, repo, nil)
	_, err = other.Generate("quiet", m)
	assert.ErrorIs(t, err, template.ErrUnresolvableFunction)
}

func TestGenerate_Errors(t *testing.T) {
	repo := grammar.Repository{
		"root":       {Name: "root", Groups: phrases("I love my [:missing].")},
		"broken":     {Name: "broken"},
		"unbalanced": {Name: "unbalanced", Groups: phrases("bad[text")},
		"useBroken":  {Name: "useBroken", Groups: phrases("[:broken]")},
	}
	g := newGenerator(t, repo, nil)

	tests := []struct {
		snippet string
		want    error
		msg     string
	}{
		{"foo", grammar.ErrUnknownSnippet, `generating "foo": unknown snippet: "foo"`},
		{"root", grammar.ErrUnknownSnippet, `generating "root": generating "missing": unknown snippet`},
		{"broken", grammar.ErrMalformedSnippet, `"broken" has no groups`},
		{"useBroken", grammar.ErrMalformedSnippet, `generating "useBroken": generating "broken"`},
		{"unbalanced", template.ErrMalformedPhrase, "missing close bracket"},
	}

	for _, tt := range tests {
		t.Run(tt.snippet, func(t *testing.T) {
			got, err := g.Generate(tt.snippet, nil)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.msg)
			assert.Empty(t, g.CurrentSnippet())
		})
	}
}

func TestGenerate_CurrentSnippet(t *testing.T) {
	repo := grammar.Repository{
		"outer": {Name: "outer", Groups: phrases("<[:inner]>")},
		"inner": {Name: "inner", Groups: phrases("[probe 'x']")},
	}
	g := newGenerator(t, repo, nil)

	var seen string
	m := model.FromProps(map[string]any{
		"probe": func(s string) string {
			seen = g.CurrentSnippet()
			return s
		},
	})

	got, err := g.Generate("outer", m)
	require.NoError(t, err)
	assert.Equal(t, "<x>", got)
	assert.Equal(t, "inner", seen)
	assert.Empty(t, g.CurrentSnippet())
}

func TestPhraseAudit(t *testing.T) {
	off := newGenerator(t, animals(), nil)
	_, ok := off.PhraseAudit()
	assert.False(t, ok)

	g := newGenerator(t, animals(), func(o *Options) { o.Audit = true })
	for range 3 {
		_, err := g.Generate("test-snippet", nil)
		require.NoError(t, err)
	}

	snap, ok := g.PhraseAudit()
	require.True(t, ok)
	assert.Equal(t, 3, snap["test-snippet"]["cat"])
	assert.Equal(t, 0, snap["test-snippet"]["pig"])
	assert.Equal(t, 0, snap["test-snippet"]["dog"])
	assert.Equal(t, map[string]int{"glue": 0, "cement": 0, "binder": 0}, snap["binding-snippet"])
}

func TestClone_IsIndependent(t *testing.T) {
	g := newGenerator(t, animals(), func(o *Options) { o.Audit = true })
	_, err := g.Generate("test-snippet", nil)
	require.NoError(t, err)

	c, err := g.Clone(constant(0))
	require.NoError(t, err)
	assert.Empty(t, c.History())

	got, err := c.Generate("test-snippet", nil)
	require.NoError(t, err)
	assert.Equal(t, "dog", got)

	assert.Equal(t, []string{"cat"}, g.History())
	snap, _ := g.PhraseAudit()
	assert.Equal(t, 0, snap["test-snippet"]["dog"])
}
