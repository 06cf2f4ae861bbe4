package globalconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/jaspreet-dot-casa/aproj/pkg/logging"
	"github.com/jaspreet-dot-casa/aproj/pkg/project"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "APROJ_"

// maxConfigFileSize bounds the settings file.
const maxConfigFileSize = 1024 * 1024

// ErrInvalidConfig is returned when settings fail validation.
var ErrInvalidConfig = errors.New("invalid aproj settings")

// Config represents the user settings.
type Config struct {
	Marker     string    `koanf:"marker" yaml:"marker"`                     // Marker file name
	ScriptPath []string  `koanf:"script_path" yaml:"script_path,omitempty"` // Extra script directories
	Log        LogConfig `koanf:"log" yaml:"log"`
}

// LogConfig controls CLI logging.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Marker: project.DefaultMarker,
		Log: LogConfig{
			Level:  "warn",
			Format: logging.FormatConsole,
		},
	}
}

// Load reads settings from path, then applies APROJ_* environment
// overrides. An empty path means GetConfigPath(). A missing file is not an
// error; defaults are used.
//
// Environment variables map to keys as follows:
//
//	APROJ_MARKER      -> marker
//	APROJ_SCRIPT_PATH -> script_path (OS path list)
//	APROJ_LOG_LEVEL   -> log.level
//	APROJ_LOG_FORMAT  -> log.format
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	k := koanf.New(".")

	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile returns the file's contents, or nil when it does not exist.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large: %d bytes (max %d)", path, info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return data, nil
}

// envTransform maps APROJ_LOG_LEVEL to log.level and splits path lists.
func envTransform(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	switch {
	case key == "script_path":
		return key, filepath.SplitList(value)
	case strings.HasPrefix(key, "log_"):
		return "log." + strings.TrimPrefix(key, "log_"), value
	default:
		return key, value
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.Marker == "" {
		return fmt.Errorf("%w: marker must not be empty", ErrInvalidConfig)
	}
	if strings.ContainsRune(c.Marker, filepath.Separator) || strings.ContainsRune(c.Marker, '/') {
		return fmt.Errorf("%w: marker %q must be a file name, not a path", ErrInvalidConfig, c.Marker)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q (want %s or %s)", ErrInvalidConfig, c.Log.Format, logging.FormatConsole, logging.FormatJSON)
	}
	return nil
}

// ProjectOptions returns the project options implied by the settings.
func (c *Config) ProjectOptions() []project.Option {
	return []project.Option{
		project.WithMarker(c.Marker),
		project.WithScriptPath(c.ScriptPath...),
	}
}
