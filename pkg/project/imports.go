package project

import (
	"fmt"
	"path/filepath"

	"github.com/jaspreet-dot-casa/aproj/pkg/script"
)

// Script errors, re-exported for callers that only import this package.
var (
	ErrScriptNotFound         = script.ErrScriptNotFound
	ErrInvalidScriptExtension = script.ErrInvalidScriptExtension
)

// MainScript is the module name given to scripts evaluated by Run.
const MainScript = "main"

// scriptPath resolves a script path relative to the project root and checks
// that it names an existing script file.
func (p *Project) scriptPath(rel string) (string, error) {
	path := filepath.Clean(rel)
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.rootPath, rel)
	}

	if err := script.CheckExtension(path); err != nil {
		return "", err
	}

	ok, err := isRegularFile(path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, rel)
	}
	return path, nil
}

// Import loads the script at rel (relative to the root) as a module named
// after the file. Modules are cached per project; reload re-evaluates the
// script.
func (p *Project) Import(rel string, reload bool) (*script.Module, error) {
	path, err := p.scriptPath(rel)
	if err != nil {
		return nil, err
	}
	return p.scripts().ImportPath(path, reload)
}

// ImportNames imports a script and returns the values of names in order.
func (p *Project) ImportNames(rel string, reload bool, names ...string) ([]any, error) {
	mod, err := p.Import(rel, reload)
	if err != nil {
		return nil, err
	}
	return mod.Lookup(names...)
}

// Run evaluates the script at rel as the main script, bypassing the module
// cache, and returns everything it defines.
func (p *Project) Run(rel string) (map[string]any, error) {
	path, err := p.scriptPath(rel)
	if err != nil {
		return nil, err
	}

	mod, err := p.scripts().Eval(path, MainScript)
	if err != nil {
		return nil, err
	}
	return mod.Values(), nil
}
