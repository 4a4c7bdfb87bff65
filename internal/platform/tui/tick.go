package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// queuePollInterval is how often a waiting client asks for the queue length.
const queuePollInterval = 5 * time.Second

// TickMsg is sent to refresh the queue length while waiting.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends a tick after interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
