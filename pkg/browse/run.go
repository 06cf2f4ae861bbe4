package browse

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jaspreet-dot-casa/aproj/pkg/project"
)

// Title returns the heading shown for p: its name, or the root directory's
// base name when unnamed.
func Title(p *project.Project) string {
	name, ok := p.Name()
	if !ok || name == "" {
		name = filepath.Base(p.RootPath())
	}
	return cases.Title(language.English).String(name)
}

// Run browses p's tree until the user quits and returns the last selected
// file path, or "" if none was selected.
func Run(p *project.Project) (string, error) {
	m := New(p.RootPathW(), Title(p))

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return "", fmt.Errorf("browser failed: %w", err)
	}

	if fm, ok := final.(*Model); ok {
		return fm.Selected(), nil
	}
	return "", nil
}
