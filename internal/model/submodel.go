package model

import (
	"fmt"
	"strings"
)

// Submodel returns the named child model, creating it on first reference
// through the submodeler and caching it on m's root. Subsequent references
// anywhere in the same generation tree, overlays included, reuse it. A
// submodel without its own function registry or factory uses its creator's.
func (m *Model) Submodel(name string) *Model {
	if sub, ok := m.findSubmodel(name); ok {
		return sub
	}

	var sub *Model
	if factory := m.Submodeler(); factory != nil {
		sub = factory(m, name)
	}
	if sub == nil {
		sub = New()
	}
	r := m.root()
	sub.parent = nil
	if sub != r {
		sub.owner = r
	}

	if r.submodels == nil {
		r.submodels = make(map[string]*Model)
	}
	r.submodels[name] = sub
	return sub
}

// HasSubmodel reports whether name has already been created.
func (m *Model) HasSubmodel(name string) bool {
	_, ok := m.findSubmodel(name)
	return ok
}

func (m *Model) findSubmodel(name string) (*Model, bool) {
	sub, ok := m.root().submodels[name]
	return sub, ok
}

// Lookup resolves a property path such as "animal" or "nested.deep.cave".
// The first segment is a model property or an existing submodel; later
// segments walk submodels and string-keyed maps.
func (m *Model) Lookup(path string) (any, bool) {
	var cur any = m
	for _, seg := range strings.Split(path, ".") {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(cur any, seg string) (any, bool) {
	switch v := cur.(type) {
	case *Model:
		if val, ok := v.Get(seg); ok {
			return val, true
		}
		if sub, ok := v.findSubmodel(seg); ok {
			return sub, true
		}
	case map[string]any:
		val, ok := v[seg]
		return val, ok
	case map[string]string:
		val, ok := v[seg]
		return val, ok
	}
	return nil, false
}

// Callable returns a property usable as a template function.
func (m *Model) Callable(name string) (Func, bool) {
	v, ok := m.Get(name)
	if !ok {
		return nil, false
	}
	switch fn := v.(type) {
	case Func:
		return fn, true
	case func(string) string:
		return fn, true
	}
	return nil, false
}

// Text renders a property value for splicing into a phrase.
func Text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
