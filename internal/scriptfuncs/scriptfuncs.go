// Package scriptfuncs loads custom template functions from a Go source file
// interpreted with yaegi, so a grammar can ship helpers such as "plural" or
// "upcap" without rebuilding the binary.
//
// A script is an ordinary Go file. Every exported top-level function of
// type func(string) string is a candidate; a names list narrows the set.
// Only a small set of side-effect-free standard packages may be imported.
package scriptfuncs

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"sort"
	"strconv"
	"sync"

	"improv/internal/logging"
	"improv/internal/model"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Loader interprets function scripts.
type Loader struct {
	allowedPackages map[string]bool
}

// NewLoader returns a loader with the default import allowlist.
func NewLoader() *Loader {
	return &Loader{
		allowedPackages: map[string]bool{
			"strings":      true,
			"strconv":      true,
			"fmt":          true,
			"math":         true,
			"regexp":       true,
			"unicode":      true,
			"unicode/utf8": true,
			"sort":         true,
			"bytes":        true,

			// Not allowed: os, os/exec, net, net/http, syscall, unsafe.
		},
	}
}

// LoadFile reads path and loads its functions.
func (l *Loader) LoadFile(path string, names []string) (model.FuncMap, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read function script: %w", err)
	}
	funcs, err := l.Load(string(src), names)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return funcs, nil
}

// Load interprets src and returns the requested functions. With no names,
// every exported func(string) string is returned.
func (l *Loader) Load(src string, names []string) (model.FuncMap, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "funcs.go", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := l.validateImports(file); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = candidates(file)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}

	// Calls re-enter one interpreter, so they are serialised.
	var mu sync.Mutex
	funcs := make(model.FuncMap, len(names))
	for _, name := range names {
		v, err := i.Eval(file.Name.Name + "." + name)
		if err != nil {
			return nil, fmt.Errorf("function %s not found: %w", name, err)
		}
		fn, ok := v.Interface().(func(string) string)
		if !ok {
			return nil, fmt.Errorf("function %s has type %s, want func(string) string", name, v.Type())
		}
		funcs[name] = func(s string) string {
			mu.Lock()
			defer mu.Unlock()
			return fn(s)
		}
	}

	logging.Get(logging.CategoryTemplate).Info("Loaded %d script functions: %v", len(funcs), names)
	return funcs, nil
}

func (l *Loader) validateImports(file *ast.File) error {
	var forbidden []string
	for _, imp := range file.Imports {
		pkg, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return fmt.Errorf("bad import %s: %w", imp.Path.Value, err)
		}
		if !l.allowedPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports detected: %v (allowed: %v)", forbidden, l.allowed())
	}
	return nil
}

func (l *Loader) allowed() []string {
	pkgs := make([]string, 0, len(l.allowedPackages))
	for pkg := range l.allowedPackages {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs
}

// candidates lists exported top-level functions shaped func(string) string.
func candidates(file *ast.File) []string {
	var names []string
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv != nil || !fd.Name.IsExported() {
			continue
		}
		if isStringFunc(fd.Type) {
			names = append(names, fd.Name.Name)
		}
	}
	return names
}

func isStringFunc(ft *ast.FuncType) bool {
	return ft.TypeParams == nil &&
		isSingleString(ft.Params) &&
		isSingleString(ft.Results)
}

func isSingleString(fields *ast.FieldList) bool {
	if fields == nil || len(fields.List) != 1 {
		return false
	}
	f := fields.List[0]
	if len(f.Names) > 1 {
		return false
	}
	ident, ok := f.Type.(*ast.Ident)
	return ok && ident.Name == "string"
}
