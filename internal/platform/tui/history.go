package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/duelhub/internal/storage"
)

// HistoryKeyMap defines the key bindings for the match-history screen.
type HistoryKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k HistoryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k HistoryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Quit}}
}

// DefaultHistoryKeyMap returns default key bindings.
func DefaultHistoryKeyMap() HistoryKeyMap {
	return HistoryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// HistoryModel is a read-only table of recorded matches.
type HistoryModel struct {
	title    string
	entries  []storage.MatchEntry
	stats    *storage.ParticipantStats // nil when showing several participants
	table    table.Model
	help     help.Model
	keys     HistoryKeyMap
	width    int
	height   int
	quitting bool
}

// NewHistoryModel creates a history screen. stats may be nil.
func NewHistoryModel(title string, entries []storage.MatchEntry, stats *storage.ParticipantStats, width, height int) HistoryModel {
	m := HistoryModel{
		title:   title,
		entries: entries,
		stats:   stats,
		help:    help.New(),
		keys:    DefaultHistoryKeyMap(),
		width:   width,
		height:  height,
	}
	m.table = m.createTable()
	m.updateRows()
	return m
}

func (m *HistoryModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Player", Width: 14},
		{Title: "Opponent", Width: 14},
		{Title: "Result", Width: 6},
		{Title: "Reason", Width: 10},
		{Title: "Moves", Width: 5},
		{Title: "Date", Width: 12},
	}

	height := m.height - 8
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
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

func (m *HistoryModel) updateRows() {
	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		rows[i] = table.Row{
			truncate(e.DisplayName, 14),
			truncate(e.OpponentName, 14),
			string(e.Outcome),
			e.Reason,
			fmt.Sprintf("%d", e.Moves),
			e.EndedAt.Format("Jan 02 15:04"),
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the history model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history screen.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table = m.createTable()
		m.updateRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the history screen.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.stats != nil {
		b.WriteString(fmt.Sprintf("Wins %d  Losses %d  Draws %d  Total %d",
			m.stats.Wins, m.stats.Losses, m.stats.Draws, m.stats.Total))
		b.WriteString("\n\n")
	}

	if len(m.entries) == 0 {
		b.WriteString(mutedStyle.Italic(true).Render("No matches recorded yet."))
	} else {
		b.WriteString(boardStyle.Render(m.table.View()))
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help.View(m.keys)))
	return b.String()
}

// RunHistory shows the history screen until the user quits.
func RunHistory(title string, entries []storage.MatchEntry, stats *storage.ParticipantStats, width, height int) error {
	p := tea.NewProgram(
		NewHistoryModel(title, entries, stats, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "."
}
