// Package generator is the public face of the engine. A Generator owns a
// snippet repository and its options, runs every generation request through
// a fixed list of capability steps, and keeps the session history that
// survives between top-level calls.
//
// A Generator is a session: calls must be sequential. Use Clone or Batch to
// run independent sessions in parallel.
package generator

import (
	"errors"
	"slices"

	"improv/internal/audit"
	"improv/internal/filters"
	"improv/internal/grammar"
	"improv/internal/logging"
	"improv/internal/model"
	"improv/internal/selection"
	"improv/internal/template"
)

// Options configures a Generator. Start from DefaultOptions; the zero value
// turns persistence off.
type Options struct {
	// Filters run in order over every candidate group.
	Filters []filters.Filter

	// Reincorporate merges each chosen phrase's tags into the model.
	Reincorporate bool

	// Persistence keeps history and tag history across Generate calls.
	Persistence bool

	// Audit enables phrase usage counting.
	Audit bool

	// Salience maps the best group score to the survival threshold.
	// Nil means selection.Identity.
	Salience selection.Formula

	// Submodeler seeds new submodels. Nil gives empty submodels.
	Submodeler model.Submodeler

	// Funcs is the custom template function registry.
	Funcs model.FuncMap

	// Rand returns floats in [0, 1). Required.
	Rand func() float64
}

// DefaultOptions returns the documented defaults: no filters, no
// reincorporation, persistence on, auditing off, identity salience.
// Rand is left for the caller.
func DefaultOptions() Options {
	return Options{
		Persistence: true,
		Salience:    selection.Identity,
	}
}

// ErrNoRand is returned by New when Options.Rand is nil.
var ErrNoRand = errors.New("generator: Options.Rand is required")

// Generator expands snippets from a repository.
type Generator struct {
	repo     grammar.Repository
	opts     Options
	selector selection.Selector
	interp   *template.Interpreter
	audit    *audit.Log
	steps    []step

	history    []string
	tagHistory []grammar.Tag
	active     []string
}

// New builds a generator over repo. The repository is shared and never
// modified.
func New(repo grammar.Repository, opts Options) (*Generator, error) {
	if opts.Rand == nil {
		return nil, ErrNoRand
	}
	if opts.Salience == nil {
		opts.Salience = selection.Identity
	}

	g := &Generator{
		repo:     repo,
		opts:     opts,
		selector: selection.Selector{Rand: opts.Rand, Reincorporate: opts.Reincorporate},
		steps:    defaultSteps(),
	}
	g.interp = template.New(opts.Rand, g.dispatch)
	if opts.Audit {
		g.audit = audit.New(repo)
	}

	logging.Get(logging.CategoryGenerate).Debug("Generator ready: %d snippets, %d filters, audit=%v",
		len(repo), len(opts.Filters), opts.Audit)
	return g, nil
}

// Generate expands snippet against m. A nil m means a fresh model. The
// session history is installed on m for the call and read back afterwards;
// without persistence it is then cleared on both. The generator's function
// registry and submodeler fill in for m's own only for the duration of the
// call.
func (g *Generator) Generate(snippet string, m *model.Model) (string, error) {
	if m == nil {
		m = model.New()
	}
	if m.Funcs() == nil && g.opts.Funcs != nil {
		m.SetFuncs(g.opts.Funcs)
		defer m.SetFuncs(nil)
	}
	if m.Submodeler() == nil && g.opts.Submodeler != nil {
		m.SetSubmodeler(g.opts.Submodeler)
		defer m.SetSubmodeler(nil)
	}

	m.SetHistory(g.history)
	m.SetTagHistory(g.tagHistory)

	out, err := g.dispatch(snippet, m, "")

	g.history = m.History()
	g.tagHistory = m.TagHistory()
	if !g.opts.Persistence {
		m.ClearHistory()
		g.ClearHistory()
	}

	if err != nil {
		logging.Get(logging.CategoryGenerate).Warn("Generation of %q failed: %v", snippet, err)
		return "", err
	}
	return out, nil
}

// History returns the session's chosen phrases, most recent first.
func (g *Generator) History() []string {
	return slices.Clone(g.history)
}

// TagHistory returns the session's chosen tags, most recent first.
func (g *Generator) TagHistory() []grammar.Tag {
	return slices.Clone(g.tagHistory)
}

// ClearHistory forgets the session history.
func (g *Generator) ClearHistory() {
	g.history = nil
	g.tagHistory = nil
}

// PhraseAudit returns a copy of the usage counts. The bool is false when
// auditing is off.
func (g *Generator) PhraseAudit() (audit.Snapshot, bool) {
	if g.audit == nil {
		return nil, false
	}
	return g.audit.Snapshot(), true
}

// CurrentSnippet names the snippet being generated, or "" between calls.
func (g *Generator) CurrentSnippet() string {
	if len(g.active) == 0 {
		return ""
	}
	return g.active[len(g.active)-1]
}

// Clone returns an independent session over the same repository and
// options, drawing from rand. History and audit counts start empty.
func (g *Generator) Clone(rand func() float64) (*Generator, error) {
	opts := g.opts
	opts.Rand = rand
	return New(g.repo, opts)
}
