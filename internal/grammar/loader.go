package grammar

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"improv/internal/logging"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadFile reads one grammar file. The format is picked by extension
// (.json, .yaml, .yml, .toml).
//
// A file holds either a single snippet carrying a "name" field, or a map of
// snippet name to definition. A definition has "groups" (each with optional
// "tags" and "phrases"), an optional "bind" flag, and may use a top-level
// "phrases" shorthand that becomes one untagged group. "phrases" may be a
// single string or a list.
func LoadFile(path string) (Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar file %s: %w", path, err)
	}

	doc, err := decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse grammar file %s: %w", path, err)
	}

	repo, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Get(logging.CategoryGrammar).Debug("Parsed %d snippets from %s", len(repo), filepath.Base(path))
	return repo, nil
}

// LoadDirectory recursively loads every grammar file under dir and merges
// them into one repository. A snippet name defined twice is an error.
func LoadDirectory(dir string) (Repository, error) {
	timer := logging.StartTimer(logging.CategoryGrammar, "LoadDirectory")
	defer timer.Stop()

	repo := make(Repository)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsGrammarFile(path) {
			return nil
		}

		part, err := LoadFile(path)
		if err != nil {
			return err
		}
		for name, s := range part {
			if _, dup := repo[name]; dup {
				return fmt.Errorf("snippet %q defined more than once (again in %s)", name, path)
			}
			repo[name] = s
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load grammar directory %s: %w", dir, err)
	}

	logging.Get(logging.CategoryGrammar).Info("Loaded %d snippets from %s", len(repo), dir)
	return repo, nil
}

// Load loads path as a directory or a single file.
func Load(path string) (Repository, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat grammar path: %w", err)
	}
	if info.IsDir() {
		return LoadDirectory(path)
	}
	return LoadFile(path)
}

// IsGrammarFile reports whether path has a supported extension.
func IsGrammarFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".toml":
		return true
	}
	return false
}

func decode(ext string, data []byte) (map[string]any, error) {
	var doc map[string]any
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unsupported grammar format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// FromDocument converts a decoded document into a repository.
func FromDocument(doc map[string]any) (Repository, error) {
	repo := make(Repository)

	if name, ok := doc["name"].(string); ok && isDefinition(doc) {
		s, err := decodeSnippet(name, doc)
		if err != nil {
			return nil, err
		}
		repo[name] = s
		return repo, nil
	}

	for name, raw := range doc {
		def, ok := asMap(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a mapping", ErrMalformedSnippet, name)
		}
		s, err := decodeSnippet(name, def)
		if err != nil {
			return nil, err
		}
		repo[name] = s
	}
	return repo, nil
}

func isDefinition(doc map[string]any) bool {
	_, hasGroups := doc["groups"]
	_, hasPhrases := doc["phrases"]
	return hasGroups || hasPhrases
}

func decodeSnippet(name string, def map[string]any) (Snippet, error) {
	s := Snippet{Name: name}

	if raw, ok := def["bind"]; ok {
		bind, ok := raw.(bool)
		if !ok {
			return Snippet{}, fmt.Errorf("%w: %q has a non-boolean bind flag", ErrMalformedSnippet, name)
		}
		s.Bind = bind
	}

	if raw, ok := def["groups"]; ok && raw != nil {
		items, ok := asList(raw)
		if !ok {
			return Snippet{}, fmt.Errorf("%w: %q groups is not a sequence", ErrMalformedSnippet, name)
		}
		s.Groups = make([]Group, 0, len(items))
		for i, item := range items {
			gdef, ok := asMap(item)
			if !ok {
				return Snippet{}, fmt.Errorf("%w: %q group %d is not a mapping", ErrMalformedSnippet, name, i)
			}
			g, err := decodeGroup(gdef)
			if err != nil {
				return Snippet{}, fmt.Errorf("%w: %q group %d: %v", ErrMalformedSnippet, name, i, err)
			}
			s.Groups = append(s.Groups, g)
		}
	}

	if raw, ok := def["phrases"]; ok {
		phrases, err := decodePhrases(raw)
		if err != nil {
			return Snippet{}, fmt.Errorf("%w: %q: %v", ErrMalformedSnippet, name, err)
		}
		s.Groups = append(s.Groups, Group{Phrases: phrases})
	}

	return s, nil
}

func decodeGroup(def map[string]any) (Group, error) {
	var g Group

	if raw, ok := def["tags"]; ok && raw != nil {
		items, ok := asList(raw)
		if !ok {
			return Group{}, fmt.Errorf("tags is not a sequence")
		}
		for _, item := range items {
			tag, err := decodeTag(item)
			if err != nil {
				return Group{}, err
			}
			g.Tags = append(g.Tags, tag)
		}
	}

	phrases, err := decodePhrases(def["phrases"])
	if err != nil {
		return Group{}, err
	}
	g.Phrases = phrases
	return g, nil
}

func decodeTag(raw any) (Tag, error) {
	if s, ok := raw.(string); ok {
		return ParseTag(s), nil
	}
	items, ok := asList(raw)
	if !ok {
		return nil, fmt.Errorf("tag %v is neither a string nor a sequence", raw)
	}
	tag := make(Tag, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("tag element %v is not a string", item)
		}
		tag = append(tag, s)
	}
	return tag, nil
}

func decodePhrases(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{v}, nil
	}
	items, ok := asList(raw)
	if !ok {
		return nil, fmt.Errorf("phrases is neither a string nor a sequence")
	}
	phrases := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("phrase %v is not a string", item)
		}
		phrases = append(phrases, s)
	}
	return phrases, nil
}

// asList accepts the sequence shapes produced by the three decoders.
func asList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	}
	return nil, false
}

func asMap(raw any) (map[string]any, bool) {
	m, ok := raw.(map[string]any)
	return m, ok
}
