// Package pathwrap provides attribute-style navigation over a directory tree.
//
// A Wrapper holds a single path and re-reads the filesystem on every call.
// Children are reached either by their raw name (Child) or by an identifier
// form of their name (Attr). When several children map to the same
// identifier, a child whose raw name equals the identifier wins, followed by
// the first match in sorted order.
package pathwrap

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrAttributeNotFound is returned when no child matches an attribute name.
var ErrAttributeNotFound = errors.New("no such attribute")

// DigitPrefix is prepended to identifiers that would otherwise start with a digit.
const DigitPrefix = "d__"

// readBatch is the number of directory entries read per syscall by All.
const readBatch = 64

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Sanitize converts a file name into an identifier. Every run of characters
// other than letters, digits and underscores becomes a single underscore, and
// a result starting with a digit gets DigitPrefix. Names that are already
// identifiers are returned unchanged.
func Sanitize(name string) string {
	attr := nonWordRe.ReplaceAllString(name, "_")
	if r, _ := utf8.DecodeRuneInString(attr); unicode.IsDigit(r) {
		attr = DigitPrefix + attr
	}
	return attr
}

// Wrapper wraps a file or directory path. The zero value wraps ".".
type Wrapper struct {
	path string
}

// New wraps path. The path is cleaned but not made absolute and need not exist.
func New(path string) Wrapper {
	return Wrapper{path: filepath.Clean(path)}
}

// Path returns the wrapped path.
func (w Wrapper) Path() string {
	if w.path == "" {
		return "."
	}
	return w.path
}

// String returns the wrapped path.
func (w Wrapper) String() string {
	return w.Path()
}

// GoString implements fmt.GoStringer.
func (w Wrapper) GoString() string {
	return fmt.Sprintf("pathwrap.Wrapper(%q)", w.Path())
}

// Exists reports whether the wrapped path exists.
func (w Wrapper) Exists() bool {
	_, err := os.Stat(w.Path())
	return err == nil
}

// IsDir reports whether the wrapped path is an existing directory.
func (w Wrapper) IsDir() bool {
	info, err := os.Stat(w.Path())
	return err == nil && info.IsDir()
}

// Len returns the number of direct children of the wrapped directory.
func (w Wrapper) Len() (int, error) {
	entries, err := os.ReadDir(w.Path())
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// All yields the names of the wrapped directory's children in the order the
// filesystem returns them. The directory is opened again on every range, so
// the sequence can be iterated more than once. A read failure is yielded as a
// final ("", err) pair.
func (w Wrapper) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(w.Path())
		if err != nil {
			yield("", err)
			return
		}
		defer f.Close()

		for {
			entries, err := f.ReadDir(readBatch)
			for _, entry := range entries {
				if !yield(entry.Name(), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// Names returns the children's raw names in filesystem order.
func (w Wrapper) Names() ([]string, error) {
	var names []string
	for name, err := range w.All() {
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Contains reports whether a child called name exists.
func (w Wrapper) Contains(name string) bool {
	_, err := os.Stat(filepath.Join(w.Path(), name))
	return err == nil
}

// Child returns a wrapper around the named child. It never fails; whether
// the child exists is only checked by later calls on the result.
func (w Wrapper) Child(name string) Wrapper {
	return New(filepath.Join(w.Path(), name))
}

// Attr resolves an identifier to a child. A child whose raw name is exactly
// name is preferred; otherwise the first child in sorted order whose
// sanitized name equals name is returned.
func (w Wrapper) Attr(name string) (Wrapper, error) {
	if isChildName(name) && w.Contains(name) {
		return w.Child(name), nil
	}

	names, err := w.Completions()
	if err != nil {
		return Wrapper{}, fmt.Errorf("failed to list %s: %w", w.Path(), err)
	}

	for _, child := range names {
		if Sanitize(child) == name {
			return w.Child(child), nil
		}
	}

	return Wrapper{}, fmt.Errorf("%w: %s", ErrAttributeNotFound, name)
}

// isChildName reports whether name can only refer to a direct child.
func isChildName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/`+string(filepath.Separator))
}

// Attributes returns the wrapper's method names followed by the sanitized
// name of every child. Collisions are not removed.
func (w Wrapper) Attributes() ([]string, error) {
	t := reflect.TypeOf(w)
	attrs := make([]string, 0, t.NumMethod())
	for i := range t.NumMethod() {
		attrs = append(attrs, t.Method(i).Name)
	}

	for name, err := range w.All() {
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Sanitize(name))
	}
	return attrs, nil
}

// Completions returns the children's raw names, sorted.
func (w Wrapper) Completions() ([]string, error) {
	names, err := w.Names()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Walk resolves a chain of attribute names starting at w.
func (w Wrapper) Walk(attrs ...string) (Wrapper, error) {
	cur := w
	for _, attr := range attrs {
		next, err := cur.Attr(attr)
		if err != nil {
			return Wrapper{}, err
		}
		cur = next
	}
	return cur, nil
}
