// Package mapview is the interactive terminal map of DRS servers,
// the on-screen display companion to the rendered PNG/SVG figures.
// Markers are plotted on an equirectangular character grid with a
// server list alongside.
package mapview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/ga4gh-tools/svcreg/internal/domain/snapshot"
	"github.com/ga4gh-tools/svcreg/internal/log"
)

const (
	sidebarWidth = 34
	chromeHeight = 4 // title, status, and footer rows around the grid
)

// RefreshMsg replaces the displayed snapshot, sent by the watcher
// when the snapshot file changes.
type RefreshMsg struct {
	Placements []snapshot.Placement
}

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Help key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Help, k.Quit}}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous server"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next server"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	oceanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("24"))
	markerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the interactive map state.
type Model struct {
	placements []snapshot.Placement
	selected   int
	width      int
	height     int
	keys       keyMap
	help       help.Model
	status     string
	logs       *log.LogListener
}

// New creates the map view for the given placements.
func New(placements []snapshot.Placement) Model {
	return Model{
		placements: placements,
		keys:       defaultKeyMap(),
		help:       help.New(),
		status:     fmt.Sprintf("%d servers plotted", len(placements)),
	}
}

// WithLogListener attaches the debug log stream. The latest entry is
// surfaced in the status line.
func (m Model) WithLogListener(l *log.LogListener) Model {
	m.logs = l
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.logs != nil {
		return m.logs.Listen()
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case RefreshMsg:
		m.placements = msg.Placements
		if m.selected >= len(m.placements) {
			m.selected = 0
		}
		m.status = fmt.Sprintf("%d servers plotted (snapshot reloaded)", len(m.placements))
		log.Debug(log.CatUI, "map view refreshed", "servers", len(m.placements))
		return m, nil

	case log.LogEvent:
		m.status = strings.TrimSpace(msg.Payload)
		if m.logs != nil {
			return m, m.logs.Listen()
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case key.Matches(msg, m.keys.Down):
			if m.selected < len(m.placements)-1 {
				m.selected++
			}
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 30
	}

	gridWidth := width - sidebarWidth - 1
	gridHeight := height - chromeHeight
	if gridWidth < 20 {
		gridWidth = 20
	}
	if gridHeight < 6 {
		gridHeight = 6
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("DRS Servers: world map"))
	b.WriteString("\n")

	grid := m.renderGrid(gridWidth, gridHeight)
	sidebar := m.renderSidebar(gridHeight)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, grid, " ", sidebar))
	b.WriteString("\n")

	status := truncate.String(m.status, uint(width)) //nolint:gosec // width is clamped positive above
	b.WriteString(subtleStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// renderGrid projects each placement onto a lon/lat character grid.
func (m Model) renderGrid(width, height int) string {
	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = make([]rune, width)
		for x := range cells[y] {
			cells[y][x] = '·'
		}
	}

	type mark struct {
		x, y     int
		selected bool
	}
	var marks []mark
	for i, p := range m.placements {
		x := int((p.Lon + 180) / 360 * float64(width-1))
		y := int((90 - p.Lat) / 180 * float64(height-1))
		if x < 0 || x >= width || y < 0 || y >= height {
			continue
		}
		cells[y][x] = '●'
		marks = append(marks, mark{x: x, y: y, selected: i == m.selected})
	}

	rows := make([]string, height)
	for y := range cells {
		var row strings.Builder
		for x, r := range cells[y] {
			styled := false
			for _, mk := range marks {
				if mk.x == x && mk.y == y {
					if mk.selected {
						row.WriteString(selectedStyle.Render(string(r)))
					} else {
						row.WriteString(markerStyle.Render(string(r)))
					}
					styled = true
					break
				}
			}
			if !styled {
				row.WriteString(oceanStyle.Render(string(r)))
			}
		}
		rows[y] = row.String()
	}
	return strings.Join(rows, "\n")
}

// renderSidebar lists the plotted servers, largest label truncated to
// the sidebar width.
func (m Model) renderSidebar(height int) string {
	lines := make([]string, 0, height)
	lines = append(lines, titleStyle.Render("Servers"))

	for i, p := range m.placements {
		if len(lines) >= height {
			break
		}
		label := fmt.Sprintf("%s (%.0f GB)", p.Server.Name, p.Server.SizeGB)
		label = runewidth.Truncate(label, sidebarWidth-2, "…")
		if i == m.selected {
			lines = append(lines, selectedStyle.Render("> "+label))
		} else {
			lines = append(lines, "  "+label)
		}
	}

	if len(m.placements) == 0 {
		lines = append(lines, subtleStyle.Render("  (no valid servers)"))
	}
	return strings.Join(lines, "\n")
}

// Selected returns the currently selected placement, or nil when the
// view is empty.
func (m Model) Selected() *snapshot.Placement {
	if m.selected < 0 || m.selected >= len(m.placements) {
		return nil
	}
	return &m.placements[m.selected]
}
