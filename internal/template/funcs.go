package template

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"improv/internal/model"
)

var builtins = map[string]model.Func{
	"a":   article,
	"an":  article,
	"cap": capitalize,
	"A":   func(s string) string { return capitalize(article(s)) },
	"An":  func(s string) string { return capitalize(article(s)) },
}

// resolveFunc looks name up in the built-ins, then the model's function
// registry, then the model's own callable properties.
func resolveFunc(name string, m *model.Model) (model.Func, error) {
	if fn, ok := builtins[name]; ok {
		return fn, nil
	}
	if fn, ok := m.Funcs()[name]; ok && fn != nil {
		return fn, nil
	}
	if fn, ok := m.Callable(name); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w: builtin or model property %q is not a function", ErrUnresolvableFunction, name)
}

// article prefixes "an " before a, e, i or o and "a " otherwise.
func article(s string) string {
	if s != "" && strings.ContainsRune("aeioAEIO", rune(s[0])) {
		return "an " + s
	}
	return "a " + s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
