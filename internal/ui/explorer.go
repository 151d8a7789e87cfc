package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tracetree/internal/hierarchy"
	"tracetree/internal/metrics"
	"tracetree/internal/navigator"
	"tracetree/internal/report"
)

// ThresholdStep is how far + and - move the minor threshold.
const ThresholdStep = 1.0

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Toggle    key.Binding
	ExpandTop key.Binding
	ExpandAll key.Binding
	Collapse  key.Binding
	HideMinor key.Binding
	Raise     key.Binding
	Lower     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		Toggle:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
		ExpandTop: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand slowest path")),
		ExpandAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "expand all")),
		Collapse:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse all")),
		HideMinor: key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hide minor")),
		Raise:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "raise threshold")),
		Lower:     key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "lower threshold")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.ExpandTop, k.HideMinor, k.Raise, k.Lower, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Toggle, k.ExpandTop, k.ExpandAll, k.Collapse},
		{k.HideMinor, k.Raise, k.Lower, k.Help, k.Quit},
	}
}

// line is one screen line of the tree: a selectable row, or a notice when
// row is negative.
type line struct {
	row    int
	notice string
}

// Explorer is an interactive tree over an analysed trace. All view changes go
// through navigator commands; the forest is never modified.
type Explorer struct {
	title  string
	groups []*hierarchy.Node
	state  navigator.ViewState
	view   navigator.View
	lines  []line
	cursor int
	offset int
	width  int
	height int
	keys   keyMap
	help   help.Model
}

// NewExplorer returns an explorer over groups starting from state.
func NewExplorer(title string, groups []*hierarchy.Node, state navigator.ViewState) *Explorer {
	m := &Explorer{
		title:  title,
		groups: groups,
		state:  state,
		width:  80,
		height: 24,
		keys:   defaultKeys(),
		help:   help.New(),
	}
	m.refresh(nil)
	return m
}

// State returns the current view state.
func (m *Explorer) State() navigator.ViewState { return m.state }

// Rendered returns the current navigator view.
func (m *Explorer) Rendered() navigator.View { return m.view }

// Selected returns the node under the cursor, or nil for an empty forest.
func (m *Explorer) Selected() *hierarchy.Node {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return nil
	}
	return m.view.Rows[m.cursor].Node
}

func (m *Explorer) Init() tea.Cmd { return nil }

func (m *Explorer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.scroll()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Explorer) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.bodyHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.move(m.bodyHeight())
	case key.Matches(msg, m.keys.Top):
		m.move(-len(m.view.Rows))
	case key.Matches(msg, m.keys.Bottom):
		m.move(len(m.view.Rows))
	case key.Matches(msg, m.keys.Toggle):
		if n := m.Selected(); n != nil && n.HasChildren() {
			m.apply(navigator.Toggle{Key: n.Key()})
		}
	case key.Matches(msg, m.keys.ExpandTop):
		m.apply(navigator.ExpandTopPath{Groups: m.groups})
	case key.Matches(msg, m.keys.ExpandAll):
		m.apply(navigator.ExpandAll{Groups: m.groups})
	case key.Matches(msg, m.keys.Collapse):
		m.apply(navigator.CollapseAll{})
	case key.Matches(msg, m.keys.HideMinor):
		m.apply(navigator.ToggleHideMinor{})
	case key.Matches(msg, m.keys.Raise):
		m.apply(navigator.AdjustThreshold{Delta: ThresholdStep})
	case key.Matches(msg, m.keys.Lower):
		m.apply(navigator.AdjustThreshold{Delta: -ThresholdStep})
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.scroll()
	}
	return m, nil
}

func (m *Explorer) apply(cmd navigator.Command) {
	selected := m.Selected()
	m.state = m.state.Apply(cmd)
	m.refresh(selected)
}

// refresh re-renders the view and keeps the cursor on keep when it is still
// visible, or on its nearest visible ancestor otherwise.
func (m *Explorer) refresh(keep *hierarchy.Node) {
	m.view = navigator.Render(m.groups, m.state)
	m.lines = m.lines[:0]
	hideMinor := m.state.HideMinor()
	if hideMinor && m.view.HiddenRoots > 0 {
		m.lines = append(m.lines, line{row: -1, notice: report.HiddenRootsNotice(m.view.HiddenRoots)})
	}
	for i, r := range m.view.Rows {
		m.lines = append(m.lines, line{row: i})
		if hideMinor && r.Expanded && r.HiddenChildren > 0 {
			indent := strings.Repeat(" ", (r.Depth+1)*2+2)
			m.lines = append(m.lines, line{row: -1, notice: indent + report.HiddenMinorNotice(r.HiddenChildren)})
		}
	}

	if keep != nil {
		if idx := m.indexOf(keep); idx >= 0 {
			m.cursor = idx
			m.scroll()
			return
		}
		var walk func(nodes []*hierarchy.Node, chain []*hierarchy.Node) []*hierarchy.Node
		walk = func(nodes []*hierarchy.Node, chain []*hierarchy.Node) []*hierarchy.Node {
			for _, n := range nodes {
				next := append(chain, n)
				if n == keep {
					return next
				}
				if found := walk(n.Children, next); found != nil {
					return found
				}
			}
			return nil
		}
		chain := walk(m.groups, nil)
		for i := len(chain) - 2; i >= 0; i-- {
			if idx := m.indexOf(chain[i]); idx >= 0 {
				m.cursor = idx
				m.scroll()
				return
			}
		}
	}
	m.cursor = min(m.cursor, len(m.view.Rows)-1)
	m.cursor = max(m.cursor, 0)
	m.scroll()
}

func (m *Explorer) indexOf(n *hierarchy.Node) int {
	for i, r := range m.view.Rows {
		if r.Node == n {
			return i
		}
	}
	return -1
}

func (m *Explorer) move(delta int) {
	if len(m.view.Rows) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.view.Rows)-1, m.cursor+delta))
	m.scroll()
}

// lineOf maps the cursor row to its screen line.
func (m *Explorer) lineOf(row int) int {
	for i, l := range m.lines {
		if l.row == row {
			return i
		}
	}
	return 0
}

func (m *Explorer) bodyHeight() int {
	helpLines := 1
	if m.help.ShowAll {
		helpLines = 6
	}
	return max(m.height-3-helpLines, 1)
}

func (m *Explorer) scroll() {
	h := m.bodyHeight()
	at := m.lineOf(m.cursor)
	if at < m.offset {
		m.offset = at
	}
	if at >= m.offset+h {
		m.offset = at - h + 1
	}
	m.offset = max(0, min(m.offset, max(len(m.lines)-h, 0)))
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	noticeStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
	seqStyle      = lipgloss.NewStyle().Faint(true)
	starStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func bucketStyle(b metrics.Bucket) lipgloss.Style {
	switch b {
	case metrics.BucketHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	case metrics.BucketMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	case metrics.BucketLow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	default:
		return lipgloss.NewStyle().Faint(true)
	}
}

func (m *Explorer) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(m.title, m.width)))
	b.WriteString("\n")

	if len(m.lines) == 0 {
		b.WriteString(noticeStyle.Render("no activities"))
		b.WriteString("\n")
	}
	end := min(m.offset+m.bodyHeight(), len(m.lines))
	for _, l := range m.lines[m.offset:end] {
		if l.row < 0 {
			b.WriteString(noticeStyle.Render(truncate(l.notice, m.width)))
		} else {
			b.WriteString(m.rowView(l.row))
		}
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(truncate(m.status(), m.width)))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Explorer) rowView(i int) string {
	r := m.view.Rows[i]
	mark := report.MarkLeaf
	switch {
	case r.Expanded:
		mark = report.MarkExpanded
	case r.Node.HasChildren():
		mark = report.MarkCollapsed
	}
	star := " "
	if r.MaxSibling {
		star = report.MarkMax
	}
	prefix := strings.Repeat(" ", r.Depth*2) + mark + star
	text := truncate(prefix+report.Label(r.Node, r.Figures), m.width)
	if i == m.cursor {
		return selectedStyle.Render(text)
	}

	name := report.Name(r.Node)
	seq := report.Sequences(r.Node)
	timing := report.Timing(r.Figures)
	if text != prefix+name+seq+timing {
		return text
	}
	if r.MaxSibling {
		star = starStyle.Render(report.MarkMax)
	}
	if r.Node.Kind == hierarchy.KindInteraction {
		name = titleStyle.Render(name)
	}
	return strings.Repeat(" ", r.Depth*2) + mark + star + name +
		seqStyle.Render(seq) + bucketStyle(r.Figures.Bucket).Render(timing)
}

func (m *Explorer) status() string {
	minor := "shown"
	if m.state.HideMinor() {
		minor = "hidden"
	}
	parts := []string{
		fmt.Sprintf("threshold %.1f%%", m.state.Threshold()),
		"minor " + minor,
		fmt.Sprintf("total %.3fs", m.view.RootTotal),
	}
	if len(m.view.Rows) > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", m.cursor+1, len(m.view.Rows)))
	}
	return strings.Join(parts, " | ")
}
