// Package model holds the mutable generation context: the tags that
// constrain selection, bound snippet results, the phrase and tag history,
// named properties for templates, and lazily created submodels.
//
// A Model is either a root or an overlay. An overlay has a parent and keeps
// its own tag set and properties; reads of those fall back through the
// parent chain. History, bindings and submodels belong to the root and are
// shared by every overlay over it, so a tag-scoped branch sees and extends
// the same generation tree as its caller.
//
// Models are not safe for concurrent use.
package model

import (
	"improv/internal/grammar"
)

// Func is a template function usable in chained directives.
type Func func(string) string

// FuncMap is a named registry of template functions.
type FuncMap map[string]Func

// Submodeler seeds a new submodel the first time name is referenced
// from parent. It may return nil for an empty model.
type Submodeler func(parent *Model, name string) *Model

// Model is the per-generation context.
type Model struct {
	parent *Model
	owner  *Model

	tags       []grammar.Tag
	hasTags    bool
	history    []string
	tagHistory []grammar.Tag

	bindings   map[string]string
	props      map[string]any
	submodels  map[string]*Model
	funcs      FuncMap
	submodeler Submodeler
}

// New returns an empty root model.
func New() *Model {
	return &Model{}
}

// FromProps returns a root model carrying the given template properties.
func FromProps(props map[string]any) *Model {
	m := New()
	for k, v := range props {
		m.Set(k, v)
	}
	return m
}

// Overlay returns a child context with its own tags and properties. Reads
// fall back to m; history, bindings and submodels are shared with m's root.
func (m *Model) Overlay() *Model {
	return &Model{parent: m}
}

// Parent returns the overlay's parent, or nil for a root model.
func (m *Model) Parent() *Model {
	return m.parent
}

// root is the model that owns history, bindings and submodels.
func (m *Model) root() *Model {
	for m.parent != nil {
		m = m.parent
	}
	return m
}

// up is the next model to consult for the function registry and the
// submodel factory: the overlay parent, or the model that created a
// submodel.
func (m *Model) up() *Model {
	if m.parent != nil {
		return m.parent
	}
	return m.owner
}

// Tags returns the effective tag set.
func (m *Model) Tags() []grammar.Tag {
	if m.hasTags || m.parent == nil {
		return m.tags
	}
	return m.parent.Tags()
}

// SetTags replaces the tag set. Callers are expected to keep one tag per
// category; MergeTags maintains that on its own.
func (m *Model) SetTags(tags []grammar.Tag) {
	m.tags = tags
	m.hasTags = true
}

// MergeTags folds tags into the model one category at a time. A tag whose
// category is new is appended; otherwise the more specific (longer) tag is
// kept, and ties keep the existing one.
func (m *Model) MergeTags(tags []grammar.Tag) {
	merged := cloneTags(m.Tags())
	for _, t := range tags {
		site := indexOfCategory(merged, t.Category())
		switch {
		case site == -1:
			merged = append(merged, t)
		case len(t) > len(merged[site]):
			merged[site] = t
		}
	}
	m.SetTags(merged)
}

// ForceTag sets tag for its category regardless of specificity.
func (m *Model) ForceTag(tag grammar.Tag) {
	forced := cloneTags(m.Tags())
	if site := indexOfCategory(forced, tag.Category()); site != -1 {
		forced[site] = tag
	} else {
		forced = append(forced, tag)
	}
	m.SetTags(forced)
}

// History returns chosen phrases, most recent first.
func (m *Model) History() []string {
	return m.root().history
}

// SetHistory replaces the phrase history.
func (m *Model) SetHistory(h []string) {
	m.root().history = h
}

// RecordPhrase prepends phrase to the history.
func (m *Model) RecordPhrase(phrase string) {
	r := m.root()
	h := make([]string, 0, len(r.history)+1)
	h = append(h, phrase)
	r.history = append(h, r.history...)
}

// TagHistory returns chosen tags, most recent first.
func (m *Model) TagHistory() []grammar.Tag {
	return m.root().tagHistory
}

// SetTagHistory replaces the tag history.
func (m *Model) SetTagHistory(h []grammar.Tag) {
	m.root().tagHistory = h
}

// RecordTags prepends a chosen tag set, in order, to the tag history.
func (m *Model) RecordTags(tags []grammar.Tag) {
	r := m.root()
	h := make([]grammar.Tag, 0, len(r.tagHistory)+len(tags))
	h = append(h, tags...)
	r.tagHistory = append(h, r.tagHistory...)
}

// ClearHistory empties both histories.
func (m *Model) ClearHistory() {
	m.SetHistory(nil)
	m.SetTagHistory(nil)
}

// Binding returns the cached result for a bound snippet.
func (m *Model) Binding(snippet string) (string, bool) {
	v, ok := m.root().bindings[snippet]
	return v, ok
}

// SetBinding caches a bound snippet's result.
func (m *Model) SetBinding(snippet, result string) {
	r := m.root()
	if r.bindings == nil {
		r.bindings = make(map[string]string)
	}
	r.bindings[snippet] = result
}

// Bindings returns a copy of every binding.
func (m *Model) Bindings() map[string]string {
	out := make(map[string]string, len(m.root().bindings))
	for k, v := range m.root().bindings {
		out[k] = v
	}
	return out
}

// Set stores a template property.
func (m *Model) Set(name string, value any) {
	if m.props == nil {
		m.props = make(map[string]any)
	}
	m.props[name] = value
}

// Get returns a template property.
func (m *Model) Get(name string) (any, bool) {
	for cur := m; cur != nil; cur = cur.parent {
		if v, ok := cur.props[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// SetFuncs installs a template function registry.
func (m *Model) SetFuncs(funcs FuncMap) {
	m.funcs = funcs
}

// Funcs returns the effective function registry.
func (m *Model) Funcs() FuncMap {
	for cur := m; cur != nil; cur = cur.up() {
		if cur.funcs != nil {
			return cur.funcs
		}
	}
	return nil
}

// SetSubmodeler installs the factory used for new submodels.
func (m *Model) SetSubmodeler(s Submodeler) {
	m.submodeler = s
}

// Submodeler returns the effective submodel factory.
func (m *Model) Submodeler() Submodeler {
	for cur := m; cur != nil; cur = cur.up() {
		if cur.submodeler != nil {
			return cur.submodeler
		}
	}
	return nil
}

func cloneTags(tags []grammar.Tag) []grammar.Tag {
	out := make([]grammar.Tag, len(tags))
	copy(out, tags)
	return out
}

func indexOfCategory(tags []grammar.Tag, category string) int {
	for i, t := range tags {
		if t.Category() == category {
			return i
		}
	}
	return -1
}
