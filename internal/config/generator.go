package config

import (
	"fmt"

	"improv/internal/filters"
	"improv/internal/generator"
	"improv/internal/selection"
)

// GeneratorConfig mirrors generator.Options in serialisable form.
type GeneratorConfig struct {
	Filters       []filters.Spec `yaml:"filters"`
	Reincorporate bool           `yaml:"reincorporate"`
	Persistence   bool           `yaml:"persistence"`
	Audit         bool           `yaml:"audit"`
	Salience      SalienceConfig `yaml:"salience"`

	// Seed fixes the random source. Nil seeds from the clock.
	Seed *uint64 `yaml:"seed,omitempty"`
}

// SalienceConfig selects a salience formula.
type SalienceConfig struct {
	Mode  string  `yaml:"mode"` // identity, offset, fixed
	Value float64 `yaml:"value"`
}

// DefaultGeneratorConfig matches generator.DefaultOptions.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Persistence: true,
		Salience:    SalienceConfig{Mode: "identity"},
	}
}

// Formula returns the configured salience formula.
func (s SalienceConfig) Formula() (selection.Formula, error) {
	switch s.Mode {
	case "", "identity":
		return selection.Identity, nil
	case "offset":
		return selection.Offset(s.Value), nil
	case "fixed":
		return selection.Fixed(s.Value), nil
	}
	return nil, fmt.Errorf("invalid salience mode: %s (valid: identity, offset, fixed)", s.Mode)
}

// Validate checks filters and the salience mode.
func (g GeneratorConfig) Validate() error {
	if _, err := filters.Build(g.Filters); err != nil {
		return err
	}
	_, err := g.Salience.Formula()
	return err
}

// GeneratorOptions converts the configuration to generator options. Rand,
// Funcs and Submodeler are left for the caller.
func (c *Config) GeneratorOptions() (generator.Options, error) {
	pipeline, err := filters.Build(c.Generator.Filters)
	if err != nil {
		return generator.Options{}, err
	}
	formula, err := c.Generator.Salience.Formula()
	if err != nil {
		return generator.Options{}, err
	}

	opts := generator.DefaultOptions()
	opts.Filters = pipeline
	opts.Reincorporate = c.Generator.Reincorporate
	opts.Persistence = c.Generator.Persistence
	opts.Audit = c.Generator.Audit
	opts.Salience = formula
	return opts, nil
}
