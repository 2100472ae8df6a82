// Package template expands the bracket directives embedded in phrases.
//
// A phrase is scanned for its first "[" and the first "]" after it. The
// bracketed directive is evaluated, its text spliced in place, and the
// whole string is scanned again, so directive output may itself carry
// directives. Directives, in the order they are recognised:
//
//	['text']            literal text
//	[fn arg...]         call fn on the expansion of the rest
//	[|cat|sub:snippet]  generate snippet with the tag forced on a branch
//	[name:snippet]      generate snippet in the named submodel (">name:" also accepted)
//	[:snippet]          generate snippet in the current model
//	[#min-max]          random integer in [min, max]
//	[a.b.c]             nested property
//	[name]              property
//
// There is no cycle detection. A self-referential grammar recurses until
// the stack runs out.
package template

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"improv/internal/grammar"
	"improv/internal/logging"
	"improv/internal/model"
)

var (
	// ErrMalformedPhrase is returned for unbalanced brackets and for
	// directives that cannot be parsed.
	ErrMalformedPhrase = errors.New("malformed phrase")

	// ErrUnresolvableFunction is returned when a chained directive names
	// nothing callable.
	ErrUnresolvableFunction = errors.New("unresolvable template function")

	// ErrUnresolvedProperty is returned when a property directive finds no
	// value on the model.
	ErrUnresolvedProperty = errors.New("unresolved property")
)

// GenerateFunc generates snippet against m, routed through the named
// submodel when submodel is non-empty.
type GenerateFunc func(snippet string, m *model.Model, submodel string) (string, error)

// Interpreter expands phrases. It holds no state between calls.
type Interpreter struct {
	rand     func() float64
	generate GenerateFunc
}

// New returns an interpreter that draws numbers from rand and recurses
// through generate.
func New(rand func() float64, generate GenerateFunc) *Interpreter {
	return &Interpreter{rand: rand, generate: generate}
}

// Expand evaluates every directive in phrase against m.
func (in *Interpreter) Expand(phrase string, m *model.Model) (string, error) {
	for {
		open := strings.IndexByte(phrase, '[')
		if open == -1 {
			return phrase, nil
		}
		end := strings.IndexByte(phrase[open:], ']')
		if end == -1 {
			return "", fmt.Errorf("%w: missing close bracket in %q", ErrMalformedPhrase, phrase)
		}
		end += open

		text, err := in.directive(phrase[open+1:end], m)
		if err != nil {
			return "", err
		}
		phrase = phrase[:open] + text + phrase[end+1:]
	}
}

func (in *Interpreter) directive(raw string, m *model.Model) (string, error) {
	d := strings.TrimSpace(raw)

	switch {
	case len(d) >= 2 && d[0] == '\'' && d[len(d)-1] == '\'':
		return d[1 : len(d)-1], nil

	case strings.Contains(d, " "):
		name, rest, _ := strings.Cut(d, " ")
		fn, err := resolveFunc(name, m)
		if err != nil {
			return "", err
		}
		arg, err := in.directive(rest, m)
		if err != nil {
			return "", err
		}
		return fn(arg), nil

	case strings.HasPrefix(d, "|"):
		return in.tagged(d, m)

	case strings.HasPrefix(d, ">") || isSubmodelRef(d):
		return in.submodel(d, m)

	case strings.HasPrefix(d, ":"):
		return in.generate(d[1:], m, "")

	case strings.HasPrefix(d, "#"):
		return in.roll(d)

	case strings.Contains(d, "."):
		v, ok := m.Lookup(d)
		return propertyText(d, v, ok)

	default:
		v, ok := m.Get(d)
		return propertyText(d, v, ok)
	}
}

// tagged handles "|cat|sub|:snippet". The tag replaces any model tag of
// the same category, on an overlay only this branch sees.
func (in *Interpreter) tagged(d string, m *model.Model) (string, error) {
	tagText, snippet, found := strings.Cut(d, ":")
	tag := grammar.ParseTag(tagText)
	if !found || snippet == "" || len(tag) == 0 {
		return "", fmt.Errorf("%w: bad tag directive [%s]", ErrMalformedPhrase, d)
	}

	branch := m.Overlay()
	branch.ForceTag(tag)
	logging.Get(logging.CategoryTemplate).Debug("tag branch %s for %s", tag, snippet)
	return in.generate(snippet, branch, "")
}

func (in *Interpreter) submodel(d string, m *model.Model) (string, error) {
	name, snippet, _ := strings.Cut(strings.TrimPrefix(d, ">"), ":")
	if name == "" || snippet == "" {
		return "", fmt.Errorf("%w: bad or malformed snippet name in directive [%s]", ErrMalformedPhrase, d)
	}
	return in.generate(snippet, m, name)
}

// roll handles "#min-max".
func (in *Interpreter) roll(d string) (string, error) {
	lo, hi, found := strings.Cut(d[1:], "-")
	if !found {
		return "", fmt.Errorf("%w: bad range [%s]", ErrMalformedPhrase, d)
	}
	minVal, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return "", fmt.Errorf("%w: bad range [%s]: %v", ErrMalformedPhrase, d, err)
	}
	maxVal, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return "", fmt.Errorf("%w: bad range [%s]: %v", ErrMalformedPhrase, d, err)
	}
	if maxVal < minVal {
		return "", fmt.Errorf("%w: empty range [%s]", ErrMalformedPhrase, d)
	}

	n := int(math.Floor(in.rand()*float64(maxVal-minVal+1))) + minVal
	return strconv.Itoa(n), nil
}

// isSubmodelRef reports whether d looks like "name:snippet".
func isSubmodelRef(d string) bool {
	name, _, found := strings.Cut(d, ":")
	return found && isIdentifier(name)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func propertyText(path string, v any, ok bool) (string, error) {
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedProperty, path)
	}
	if _, isModel := v.(*model.Model); isModel {
		return "", fmt.Errorf("%w: %q is a submodel, not a value", ErrUnresolvedProperty, path)
	}
	return model.Text(v), nil
}
