// Package project locates a project's root directory, loads its
// configuration and resolves scripts and paths relative to it.
//
// A project root is the nearest directory, starting from some path and moving
// upward, that contains the marker file (project.yaml by default). The marker
// file doubles as the project's YAML configuration.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/jaspreet-dot-casa/aproj/pkg/logging"
)

// DefaultMarker is the file name that marks a project root.
const DefaultMarker = "project.yaml"

var (
	// ErrProjectNotFound is returned when no directory up to the filesystem root has a marker file.
	ErrProjectNotFound = errors.New("not contained in a project directory")
	// ErrInvalidPath is returned when a project path is neither a file nor a directory.
	ErrInvalidPath = errors.New("not a file or directory")
	// ErrInvalidConfig is returned when a config file does not hold a YAML mapping.
	ErrInvalidConfig = errors.New("invalid project config")
)

// FindRoot walks up from start looking for a directory that contains marker
// as a regular file. An empty start means the working directory and an empty
// marker means DefaultMarker.
func FindRoot(start, marker string) (string, error) {
	return findRoot(start, marker, nil)
}

func findRoot(start, marker string, logger *zap.Logger) (string, error) {
	logger = logging.OrNop(logger)
	if marker == "" {
		marker = DefaultMarker
	}
	if start == "" {
		start = "."
	}

	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	// Walk up the directory tree
	dir := abs
	for {
		found, err := isRegularFile(filepath.Join(dir, marker))
		if err != nil {
			return "", err
		}
		if found {
			logger.Debug("found project marker", zap.String("root", dir), zap.String("marker", marker))
			return dir, nil
		}
		logger.Debug("no project marker", zap.String("dir", dir))

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s: %w (looked for %s)", abs, ErrProjectNotFound, marker)
}

// isRegularFile reports whether path is a regular file. Missing paths, and
// paths below something that is not a directory, are not errors.
func isRegularFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, fmt.Errorf("failed to access %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// Locate finds the project containing start and loads it.
func Locate(start string, opts ...Option) (*Project, error) {
	o := newOptions(opts)

	root, err := findRoot(start, o.marker, o.logger)
	if err != nil {
		return nil, err
	}

	return New(filepath.Join(root, o.marker), opts...)
}
