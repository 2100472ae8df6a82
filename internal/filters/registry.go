package filters

import (
	"fmt"
	"sort"
)

// Spec names a built-in filter and its parameters, as written in config.
type Spec struct {
	Name       string   `yaml:"name" json:"name"`
	Bonus      *float64 `yaml:"bonus,omitempty" json:"bonus,omitempty"`
	Cumulative bool     `yaml:"cumulative,omitempty" json:"cumulative,omitempty"`
}

type constructor func(s Spec) Filter

var builtins = map[string]constructor{
	"mismatch":      func(Spec) Filter { return Mismatch() },
	"partial_bonus": func(s Spec) Filter { return PartialBonus(s.bonus(), s.Cumulative) },
	"full_bonus":    func(s Spec) Filter { return FullBonus(s.bonus(), s.Cumulative) },
	"dryness":       func(Spec) Filter { return Dryness() },
	"unmentioned":   func(s Spec) Filter { return Unmentioned(s.bonus()) },
}

func (s Spec) bonus() float64 {
	if s.Bonus == nil {
		return 1
	}
	return *s.Bonus
}

// Names lists the registered filter names.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build turns specs into a pipeline, preserving order.
func Build(specs []Spec) ([]Filter, error) {
	pipeline := make([]Filter, 0, len(specs))
	for i, s := range specs {
		ctor, ok := builtins[s.Name]
		if !ok {
			return nil, fmt.Errorf("filter %d: unknown filter %q (known: %v)", i, s.Name, Names())
		}
		pipeline = append(pipeline, ctor(s))
	}
	return pipeline, nil
}
