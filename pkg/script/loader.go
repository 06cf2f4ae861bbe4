// Package script loads project scripts written as HCL attribute files.
//
// A script is a flat list of attributes:
//
//	foo   = 3
//	label = upper("${project.name}-${foo}")
//
// Attributes may reference one another in any order, plus the variables
// provided by the Loader (for projects: project and config) and the script
// variable describing the file being evaluated. The evaluated attributes form a
// Module. Modules are cached by name (the file stem) the way an interpreter
// caches imported modules; ImportPath with reload re-evaluates the file.
package script

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"

	"github.com/jaspreet-dot-casa/aproj/pkg/logging"
)

// Extension is the required file suffix for scripts.
const Extension = ".hcl"

var (
	// ErrScriptNotFound is returned when a script file does not exist.
	ErrScriptNotFound = errors.New("script not found")
	// ErrInvalidScriptExtension is returned for paths without the script suffix.
	ErrInvalidScriptExtension = errors.New("invalid script extension")
	// ErrNameNotFound is returned when a module does not define a requested name.
	ErrNameNotFound = errors.New("name not defined by script")
	// ErrEvaluation is returned when a script fails to parse or evaluate.
	ErrEvaluation = errors.New("script evaluation failed")
)

// Loader evaluates scripts and caches the resulting modules.
type Loader struct {
	mu         sync.Mutex
	searchPath []string
	modules    map[string]*Module
	vars       map[string]cty.Value
	logger     *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSearchPath sets the base search path.
func WithSearchPath(dirs ...string) LoaderOption {
	return func(l *Loader) {
		l.searchPath = append([]string(nil), dirs...)
	}
}

// WithVariables sets variables visible to every script.
func WithVariables(vars map[string]cty.Value) LoaderOption {
	return func(l *Loader) {
		maps.Copy(l.vars, vars)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logging.OrNop(logger)
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		modules: make(map[string]*Module),
		vars:    make(map[string]cty.Value),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SearchPath returns a copy of the current search path, highest priority first.
func (l *Loader) SearchPath() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.searchPath)
}

// Push puts dir at the front of the search path. The returned func restores
// the search path to what it was before the call.
func (l *Loader) Push(dir string) (pop func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	restore := l.push(dir)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		restore()
	}
}

// push requires l.mu to be held, as does calling the returned func.
func (l *Loader) push(dir string) func() {
	prev := l.searchPath
	l.searchPath = append([]string{dir}, prev...)
	return func() {
		l.searchPath = prev
	}
}

// Resolve finds the first <dir>/<name>.hcl on the search path.
func (l *Loader) Resolve(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolve(name)
}

func (l *Loader) resolve(name string) (string, error) {
	for _, dir := range l.searchPath {
		candidate := filepath.Join(dir, name+Extension)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s%s (searched %s)", ErrScriptNotFound, name, Extension,
		strings.Join(l.searchPath, string(os.PathListSeparator)))
}

// ImportPath imports the script at path as a module named after its stem.
// The script's directory is searched first while the module is resolved and
// evaluated. A cached module with the same name and file is returned unless
// reload is set.
func (l *Loader) ImportPath(path string, reload bool) (*Module, error) {
	file, err := checkFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pop := l.push(filepath.Dir(file))
	defer pop()

	name := Stem(file)
	resolved, err := l.resolve(name)
	if err != nil {
		return nil, err
	}

	if mod, ok := l.modules[name]; ok && !reload && mod.file == resolved {
		l.logger.Debug("script cache hit", zap.String("name", name), zap.String("file", resolved))
		return mod, nil
	}

	mod, err := l.eval(resolved, name)
	if err != nil {
		return nil, err
	}
	l.modules[name] = mod
	return mod, nil
}

// Eval evaluates the script at path without consulting or filling the cache.
func (l *Loader) Eval(path, name string) (*Module, error) {
	file, err := checkFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eval(file, name)
}

// Cached returns the cached module called name, if any.
func (l *Loader) Cached(name string) (*Module, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mod, ok := l.modules[name]
	return mod, ok
}

func (l *Loader) eval(file, name string) (*Module, error) {
	l.logger.Debug("evaluating script", zap.String("name", name), zap.String("file", file))

	// A fresh parser each time; hclparse caches files by name.
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, diags)
	}

	attrs, diags := f.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrEvaluation, diags)
	}

	vars := maps.Clone(l.vars)
	vars["script"] = cty.ObjectVal(map[string]cty.Value{
		"name": cty.StringVal(name),
		"file": cty.StringVal(file),
		"dir":  cty.StringVal(filepath.Dir(file)),
	})

	evaluated, err := evalAttributes(attrs, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	values := make(map[string]any, len(evaluated))
	for k, v := range evaluated {
		native, err := ToNative(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: attribute %s: %w", ErrEvaluation, file, k, err)
		}
		values[k] = native
	}

	return &Module{name: name, file: file, values: values}, nil
}

// evalAttributes evaluates attrs, deferring each attribute until the
// attributes it references have values. References that can never be
// satisfied, including cycles, are an error.
func evalAttributes(attrs hcl.Attributes, base map[string]cty.Value) (map[string]cty.Value, error) {
	done := make(map[string]cty.Value, len(attrs))
	pending := slices.Sorted(maps.Keys(attrs))

	for len(pending) > 0 {
		var deferred []string
		for _, name := range pending {
			attr := attrs[name]
			if !ready(attr.Expr, attrs, done) {
				deferred = append(deferred, name)
				continue
			}

			ctx := &hcl.EvalContext{
				Variables: mergeVars(base, done),
				Functions: functions,
			}
			v, diags := attr.Expr.Value(ctx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%w: %w", ErrEvaluation, diags)
			}
			done[name] = v
		}

		if len(deferred) == len(pending) {
			return nil, fmt.Errorf("%w: unresolvable references in %s", ErrEvaluation, strings.Join(deferred, ", "))
		}
		pending = deferred
	}

	return done, nil
}

func ready(expr hcl.Expression, attrs hcl.Attributes, done map[string]cty.Value) bool {
	for _, tr := range expr.Variables() {
		root := tr.RootName()
		if _, isAttr := attrs[root]; !isAttr {
			continue
		}
		if _, ok := done[root]; !ok {
			return false
		}
	}
	return true
}

func mergeVars(base, done map[string]cty.Value) map[string]cty.Value {
	vars := make(map[string]cty.Value, len(base)+len(done))
	maps.Copy(vars, base)
	maps.Copy(vars, done)
	return vars
}

// CheckExtension reports ErrInvalidScriptExtension unless path ends in Extension.
func CheckExtension(path string) error {
	if filepath.Ext(path) != Extension {
		return fmt.Errorf("%w: %s must have %s extension", ErrInvalidScriptExtension, path, Extension)
	}
	return nil
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// checkFile validates the extension and existence of a script and returns its absolute path.
func checkFile(path string) (string, error) {
	if err := CheckExtension(path); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrScriptNotFound, path)
		}
		return "", fmt.Errorf("failed to access script: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a file", ErrScriptNotFound, path)
	}
	return abs, nil
}
