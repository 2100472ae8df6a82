package generator

import (
	"fmt"

	"improv/internal/filters"
	"improv/internal/logging"
	"improv/internal/model"
	"improv/internal/selection"
)

// call is one generation request as it travels through the steps.
type call struct {
	snippet  string
	model    *model.Model
	submodel string
}

type nextFunc func(c call) (string, error)

// step is one capability wrapped around the core generation.
type step struct {
	name string
	run  func(g *Generator, c call, next nextFunc) (string, error)
}

// defaultSteps lists the capabilities from outermost to innermost.
func defaultSteps() []step {
	return []step{
		{name: "bindings", run: (*Generator).bindingStep},
		{name: "submodel", run: (*Generator).submodelStep},
		{name: "track", run: (*Generator).trackStep},
		{name: "validate", run: (*Generator).validateStep},
	}
}

// dispatch is the single entry point for generation, used both by
// Generate and by every template directive that recurses.
func (g *Generator) dispatch(snippet string, m *model.Model, submodel string) (string, error) {
	return g.runFrom(0, call{snippet: snippet, model: m, submodel: submodel})
}

func (g *Generator) runFrom(i int, c call) (string, error) {
	if i == len(g.steps) {
		return g.core(c)
	}
	return g.steps[i].run(g, c, func(c call) (string, error) {
		return g.runFrom(i+1, c)
	})
}

// bindingStep returns the cached text of a bound snippet, or generates and
// caches it. The cache lives on the model the snippet is generated in, so
// each submodel binds its own value.
func (g *Generator) bindingStep(c call, next nextFunc) (string, error) {
	if !g.repo.Bound(c.snippet) {
		return next(c)
	}

	target := c.model
	if c.submodel != "" {
		target = c.model.Submodel(c.submodel)
	}
	if cached, ok := target.Binding(c.snippet); ok {
		logging.Get(logging.CategoryGenerate).Debug("binding hit for %s", c.snippet)
		return cached, nil
	}

	out, err := next(c)
	if err != nil {
		return "", err
	}
	target.SetBinding(c.snippet, out)
	return out, nil
}

func (g *Generator) submodelStep(c call, next nextFunc) (string, error) {
	if c.submodel != "" {
		c.model = c.model.Submodel(c.submodel)
	}
	return next(c)
}

// trackStep maintains the active snippet stack and prefixes errors with
// the snippet they surfaced in.
func (g *Generator) trackStep(c call, next nextFunc) (string, error) {
	g.active = append(g.active, c.snippet)
	defer func() { g.active = g.active[:len(g.active)-1] }()

	out, err := next(c)
	if err != nil {
		return "", fmt.Errorf("generating %q: %w", c.snippet, err)
	}
	return out, nil
}

func (g *Generator) validateStep(c call, next nextFunc) (string, error) {
	if _, err := g.repo.Lookup(c.snippet); err != nil {
		return "", err
	}
	return next(c)
}

// core filters, thresholds and picks a phrase, then expands it.
func (g *Generator) core(c call) (string, error) {
	s, err := g.repo.Lookup(c.snippet)
	if err != nil {
		return "", err
	}

	scored := filters.ApplyAll(g.opts.Filters, s.Groups, c.model)
	salient := selection.Salience(scored, g.opts.Salience)
	candidates := selection.Flatten(salient)
	chosen, err := g.selector.Choose(c.snippet, candidates, c.model)
	if err != nil {
		return "", err
	}
	if log := logging.Get(logging.CategoryGenerate); log.Enabled() {
		log.Debug("%s: chose %q from %d candidates in %d groups", c.snippet, chosen.Phrase, len(candidates), len(salient))
	}

	if g.audit != nil {
		g.audit.Increment(c.snippet, chosen.Phrase)
	}
	return g.interp.Expand(chosen.Phrase, c.model)
}
