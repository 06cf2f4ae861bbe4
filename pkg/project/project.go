package project

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jaspreet-dot-casa/aproj/pkg/logging"
	"github.com/jaspreet-dot-casa/aproj/pkg/pathwrap"
	"github.com/jaspreet-dot-casa/aproj/pkg/script"
)

// Project is a directory holding project data, documentation and analysis
// scripts. It does not change after construction.
type Project struct {
	rootPath   string
	configFile string
	config     map[string]any
	name       string
	hasName    bool

	searchPath []string
	loadOnce   sync.Once
	loader     *script.Loader
	logger     *zap.Logger
}

// Option configures Locate and New.
type Option func(*options)

type options struct {
	marker     string
	config     map[string]any
	logger     *zap.Logger
	scriptPath []string
}

func newOptions(opts []Option) *options {
	o := &options{marker: DefaultMarker}
	for _, opt := range opts {
		opt(o)
	}
	if o.marker == "" {
		o.marker = DefaultMarker
	}
	o.logger = logging.OrNop(o.logger)
	return o
}

// WithMarker sets the marker file name searched for by Locate and looked up
// in a root directory by New.
func WithMarker(name string) Option {
	return func(o *options) {
		o.marker = name
	}
}

// WithConfig supplies the configuration directly. A non-nil map, even an
// empty one, replaces loading from the marker file.
func WithConfig(config map[string]any) Option {
	return func(o *options) {
		o.config = config
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithScriptPath adds directories searched after a script's own directory
// when scripts are imported.
func WithScriptPath(dirs ...string) Option {
	return func(o *options) {
		o.scriptPath = append(o.scriptPath, dirs...)
	}
}

// New creates a Project from a root directory or from a config file inside
// the root directory.
func New(path string, opts ...Option) (*Project, error) {
	o := newOptions(opts)

	var rootPath, configFile string
	info, err := os.Stat(path)
	switch {
	case err == nil && info.Mode().IsRegular():
		if rootPath, err = filepath.Abs(filepath.Dir(path)); err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		configFile = filepath.Join(rootPath, filepath.Base(path))

	case err == nil && info.IsDir():
		if rootPath, err = filepath.Abs(path); err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		candidate := filepath.Join(rootPath, o.marker)
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}

	default:
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidPath)
	}

	p := &Project{
		rootPath:   rootPath,
		searchPath: o.scriptPath,
		logger:     o.logger,
	}

	switch {
	case o.config != nil:
		p.config = o.config
	case configFile != "":
		if p.config, err = ReadConfig(configFile); err != nil {
			return nil, err
		}
		p.configFile = configFile
	default:
		p.config = map[string]any{}
	}

	if v, ok := p.config["name"]; ok && v != nil {
		p.hasName = true
		if s, isString := v.(string); isString {
			p.name = s
		} else {
			p.name = fmt.Sprint(v)
		}
	}

	p.logger.Debug("loaded project",
		zap.String("root", p.rootPath),
		zap.String("config_file", p.configFile),
		zap.Int("config_keys", len(p.config)),
	)

	return p, nil
}

// scripts returns the project's script loader, creating it on first use.
func (p *Project) scripts() *script.Loader {
	p.loadOnce.Do(func() {
		p.loader = script.NewLoader(
			script.WithSearchPath(p.searchPath...),
			script.WithVariables(p.scriptVariables()),
			script.WithLogger(p.logger),
		)
	})
	return p.loader
}

// scriptVariables returns the project and config variables seen by scripts.
func (p *Project) scriptVariables() map[string]cty.Value {
	name := cty.NullVal(cty.String)
	if p.hasName {
		name = cty.StringVal(p.name)
	}

	return map[string]cty.Value{
		"project": cty.ObjectVal(map[string]cty.Value{
			"name": name,
			"root": cty.StringVal(p.rootPath),
		}),
		"config": script.ToValue(p.config),
	}
}

// RootPath returns the absolute path of the project's root directory.
func (p *Project) RootPath() string {
	return p.rootPath
}

// RootPathW returns a path wrapper around the root directory.
func (p *Project) RootPathW() pathwrap.Wrapper {
	return pathwrap.New(p.rootPath)
}

// ConfigFile returns the file the configuration was read from, or "" when
// there was none or the configuration was supplied directly.
func (p *Project) ConfigFile() string {
	return p.configFile
}

// Config returns a shallow copy of the configuration.
func (p *Project) Config() map[string]any {
	return maps.Clone(p.config)
}

// Name returns the "name" config entry, if set.
func (p *Project) Name() (string, bool) {
	return p.name, p.hasName
}

// Path joins elem onto the root path.
func (p *Project) Path(elem ...string) string {
	return filepath.Join(append([]string{p.rootPath}, elem...)...)
}

// String implements fmt.Stringer.
func (p *Project) String() string {
	if p.hasName {
		return fmt.Sprintf("Project(%q, name=%q)", p.rootPath, p.name)
	}
	return fmt.Sprintf("Project(%q)", p.rootPath)
}

// ReadConfig parses a YAML config file into a mapping. A missing file or an
// empty document gives an empty mapping.
func ReadConfig(file string) (map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, err)
	}
	if doc == nil {
		return map[string]any{}, nil
	}

	config, ok := normalize(doc).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping, got %T", ErrInvalidConfig, file, doc)
	}
	return config, nil
}

// normalize converts YAML mappings with non-string keys to map[string]any.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, elem := range val {
			val[k] = normalize(elem)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalize(elem)
		}
		return out
	case []any:
		for i, elem := range val {
			val[i] = normalize(elem)
		}
		return val
	default:
		return v
	}
}
