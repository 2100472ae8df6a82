package main

import (
	"fmt"
	"strings"
	"time"

	"improv/internal/config"
	"improv/internal/generator"
	"improv/internal/grammar"
	"improv/internal/model"
	"improv/internal/scriptfuncs"
	"improv/pkg/improv"

	"go.uber.org/zap"
)

// baseSeed returns the configured seed, or one taken from the clock.
func (c *cli) baseSeed() uint64 {
	if c.cfg.Generator.Seed != nil {
		return *c.cfg.Generator.Seed
	}
	return uint64(time.Now().UnixNano())
}

// newRand returns a [0, 1) source for seed. This is the only place the CLI
// creates randomness.
func newRand(seed uint64) func() float64 {
	return improv.SeededRand(seed)
}

// loadGrammar reads the configured grammar.
func (c *cli) loadGrammar() (grammar.Repository, error) {
	repo, err := grammar.Load(c.cfg.Grammar.Path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("grammar loaded", zap.String("path", c.cfg.Grammar.Path), zap.Int("snippets", len(repo)))
	return repo, nil
}

// options builds generator options from config, loading script functions
// when configured.
func (c *cli) options(seed uint64, mutate func(*config.Config)) (generator.Options, error) {
	cfg := *c.cfg
	if mutate != nil {
		mutate(&cfg)
	}

	opts, err := cfg.GeneratorOptions()
	if err != nil {
		return generator.Options{}, err
	}
	opts.Rand = newRand(seed)

	if cfg.Funcs.Script != "" {
		funcs, err := scriptfuncs.NewLoader().LoadFile(cfg.Funcs.Script, cfg.Funcs.Names)
		if err != nil {
			return generator.Options{}, err
		}
		opts.Funcs = funcs
	}
	return opts, nil
}

// newGenerator loads the grammar and builds a generator.
func (c *cli) newGenerator(mutate func(*config.Config)) (*generator.Generator, error) {
	repo, err := c.loadGrammar()
	if err != nil {
		return nil, err
	}
	return c.generatorFor(repo, mutate)
}

func (c *cli) generatorFor(repo grammar.Repository, mutate func(*config.Config)) (*generator.Generator, error) {
	seed := c.baseSeed()
	opts, err := c.options(seed, mutate)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("generator seeded", zap.Uint64("seed", seed))
	return generator.New(repo, opts)
}

// modelFlags are the flags that seed a model.
type modelFlags struct {
	props []string
	tags  []string
	prime []string
}

// build returns a model with the given properties and tags, with the prime
// snippets already generated on it.
func (f modelFlags) build(g *generator.Generator) (*model.Model, error) {
	m := model.New()
	for _, kv := range f.props {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("bad --prop %q, want key=value", kv)
		}
		m.Set(k, v)
	}

	var tags []grammar.Tag
	for _, raw := range f.tags {
		tag := grammar.ParseTag(raw)
		if len(tag) == 0 {
			return nil, fmt.Errorf("bad --tag %q", raw)
		}
		tags = append(tags, tag)
	}
	m.MergeTags(tags)

	for _, p := range f.prime {
		if _, err := g.Generate(p, m); err != nil {
			return nil, fmt.Errorf("priming %s: %w", p, err)
		}
	}
	return m, nil
}
