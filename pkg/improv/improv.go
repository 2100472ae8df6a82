// Package improv is the public entry point to the generation engine. It
// re-exports the types a host program needs from the internal packages so
// that code outside this module can load a grammar, configure filters and
// run generations without importing internal paths.
package improv

import (
	"math/rand/v2"
	"time"

	"improv/internal/audit"
	"improv/internal/filters"
	"improv/internal/generator"
	"improv/internal/grammar"
	"improv/internal/model"
	"improv/internal/selection"
	"improv/internal/template"
)

// Grammar types.
type (
	Tag        = grammar.Tag
	Group      = grammar.Group
	Snippet    = grammar.Snippet
	Repository = grammar.Repository
)

// Engine types.
type (
	Model        = model.Model
	Func         = model.Func
	FuncMap      = model.FuncMap
	Submodeler   = model.Submodeler
	Filter       = filters.Filter
	Formula      = selection.Formula
	Generator    = generator.Generator
	Options      = generator.Options
	BatchOptions = generator.BatchOptions
	Snapshot     = audit.Snapshot
)

// Errors callers can match with errors.Is.
var (
	ErrUnknownSnippet       = grammar.ErrUnknownSnippet
	ErrMalformedSnippet     = grammar.ErrMalformedSnippet
	ErrExhaustedCandidates  = selection.ErrExhaustedCandidates
	ErrMalformedPhrase      = template.ErrMalformedPhrase
	ErrUnresolvableFunction = template.ErrUnresolvableFunction
	ErrUnresolvedProperty   = template.ErrUnresolvedProperty
	ErrNoRand               = generator.ErrNoRand
)

// Grammar loading.
var (
	Load          = grammar.Load
	LoadFile      = grammar.LoadFile
	LoadDirectory = grammar.LoadDirectory
	ParseTag      = grammar.ParseTag
)

// Models.
var (
	NewModel  = model.New
	FromProps = model.FromProps
)

// Salience formulas.
var (
	Identity = selection.Identity
	Offset   = selection.Offset
	Fixed    = selection.Fixed
)

// Built-in filters.
var (
	Mismatch     = filters.Mismatch
	PartialBonus = filters.PartialBonus
	FullBonus    = filters.FullBonus
	Dryness      = filters.Dryness
	Unmentioned  = filters.Unmentioned
)

// DefaultOptions returns the engine defaults. Rand is left unset.
func DefaultOptions() Options {
	return generator.DefaultOptions()
}

// New builds a generator over repo.
func New(repo Repository, opts Options) (*Generator, error) {
	return generator.New(repo, opts)
}

// NewSeeded builds a generator whose random source is a PCG stream seeded
// with seed. Equal seeds over equal inputs give equal output.
func NewSeeded(repo Repository, opts Options, seed uint64) (*Generator, error) {
	opts.Rand = SeededRand(seed)
	return generator.New(repo, opts)
}

// NewDefault builds a generator that draws from a time-seeded source when
// opts.Rand is nil.
func NewDefault(repo Repository, opts Options) (*Generator, error) {
	if opts.Rand == nil {
		opts.Rand = SeededRand(uint64(time.Now().UnixNano()))
	}
	return generator.New(repo, opts)
}

// SeededRand returns a deterministic float source in [0, 1).
func SeededRand(seed uint64) func() float64 {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Float64
}
