// Package browse provides an interactive browser over a project's directory
// tree, showing each child with the attribute name it resolves from.
package browse

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jaspreet-dot-casa/aproj/pkg/pathwrap"
)

// entry is one child of the current directory.
type entry struct {
	name string
	attr string
	dir  bool
}

// entriesMsg carries the children of dir.
type entriesMsg struct {
	dir     pathwrap.Wrapper
	entries []entry
}

// errMsg indicates dir could not be read.
type errMsg struct {
	dir pathwrap.Wrapper
	err error
}

// Model is the browser model.
type Model struct {
	root  pathwrap.Wrapper
	stack []pathwrap.Wrapper
	title string

	entries   []entry
	table     table.Model
	input     textinput.Model
	prompting bool
	keys      KeyMap

	selected string
	status   string
	err      error
	quitting bool

	copy func(string) error
}

// New creates a browser rooted at root.
func New(root pathwrap.Wrapper, title string) *Model {
	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "attribute, e.g. data.raw_data"

	return &Model{
		root:  root,
		stack: []pathwrap.Wrapper{root},
		title: title,
		table: newTable(),
		input: input,
		keys:  DefaultKeyMap(),
		copy:  clipboard.WriteAll,
	}
}

// newTable creates the table model with columns
func newTable() table.Model {
	columns := []table.Column{
		{Title: "NAME", Width: 32},
		{Title: "ATTRIBUTE", Width: 32},
		{Title: "KIND", Width: 6},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// Init loads the root directory.
func (m *Model) Init() tea.Cmd {
	return m.load(m.current())
}

// Current returns the directory being shown.
func (m *Model) Current() pathwrap.Wrapper {
	return m.current()
}

func (m *Model) current() pathwrap.Wrapper {
	return m.stack[len(m.stack)-1]
}

// Selected returns the last file chosen with enter, or "".
func (m *Model) Selected() string {
	return m.selected
}

// Status returns the status line.
func (m *Model) Status() string {
	return m.status
}

// load reads dir's children.
func (m *Model) load(dir pathwrap.Wrapper) tea.Cmd {
	return func() tea.Msg {
		entries, err := readEntries(dir)
		if err != nil {
			return errMsg{dir: dir, err: err}
		}
		return entriesMsg{dir: dir, entries: entries}
	}
}

func readEntries(dir pathwrap.Wrapper) ([]entry, error) {
	names, err := dir.Completions()
	if err != nil {
		return nil, err
	}

	entries := make([]entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, entry{
			name: name,
			attr: pathwrap.Sanitize(name),
			dir:  dir.Child(name).IsDir(),
		})
	}
	return entries, nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case entriesMsg:
		if msg.dir != m.current() {
			// Stale result from a directory we already left.
			return m, nil
		}
		m.err = nil
		m.entries = msg.entries
		m.table.SetRows(rows(msg.entries))
		m.table.SetCursor(0)
		return m, nil

	case errMsg:
		if msg.dir != m.current() {
			return m, nil
		}
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func rows(entries []entry) []table.Row {
	out := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		kind := "file"
		if e.dir {
			kind = "dir"
		}
		out = append(out, table.Row{e.name, e.attr, kind})
	}
	return out
}

// handleKeyMsg handles keyboard input
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Enter):
		e, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		return m.open(m.current().Child(e.name))
	case key.Matches(msg, m.keys.Back):
		return m.up()
	case key.Matches(msg, m.keys.Find):
		m.prompting = true
		m.input.SetValue("")
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.Copy):
		return m.copySelected()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load(m.current())
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// updatePrompt handles input while the attribute prompt is open. The value
// is a dotted chain of attribute names resolved from the current directory.
func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.closePrompt()
		return m, nil

	case msg.Type == tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		if value == "" {
			return m, nil
		}

		target, err := m.current().Walk(strings.Split(value, ".")...)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m.open(target)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.input.Blur()
}

// open descends into a directory or selects a file.
func (m *Model) open(target pathwrap.Wrapper) (tea.Model, tea.Cmd) {
	if target.IsDir() {
		m.stack = append(m.stack, target)
		m.status = ""
		return m, m.load(target)
	}

	m.selected = target.Path()
	m.status = "selected " + m.relative(target)
	return m, nil
}

// up returns to the previous directory, stopping at the root.
func (m *Model) up() (tea.Model, tea.Cmd) {
	if len(m.stack) == 1 {
		m.status = "already at project root"
		return m, nil
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.status = ""
	return m, m.load(m.current())
}

func (m *Model) copySelected() (tea.Model, tea.Cmd) {
	e, ok := m.selectedEntry()
	if !ok {
		return m, nil
	}

	path := m.current().Child(e.name).Path()
	if err := m.copy(path); err != nil {
		m.status = fmt.Sprintf("copy failed: %v", err)
		return m, nil
	}
	m.status = "copied " + path
	return m, nil
}

func (m *Model) selectedEntry() (entry, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.entries) {
		return entry{}, false
	}
	return m.entries[idx], true
}

// relative returns w's path relative to the root, "/" for the root itself.
func (m *Model) relative(w pathwrap.Wrapper) string {
	rel, err := filepath.Rel(m.root.Path(), w.Path())
	if err != nil {
		return w.Path()
	}
	if rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// View renders the browser.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("  ")
	b.WriteString(DirStyle.Render(m.relative(m.current())))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")

	switch {
	case m.prompting:
		b.WriteString(m.input.View())
	case m.status != "":
		b.WriteString(SuccessStyle.Render(m.status))
	}
	b.WriteString("\n")

	b.WriteString(DimStyle.Render(strings.Join(m.keys.Help(), "  ")))
	return BoxStyle.Render(b.String())
}
