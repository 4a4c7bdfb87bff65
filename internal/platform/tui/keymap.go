package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// DuelKeyMap defines the key bindings for a duel screen.
// Printable keys go to the move input, so every binding uses a control key.
type DuelKeyMap struct {
	Submit  key.Binding
	Refresh key.Binding
	Leave   key.Binding
	Quit    key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k DuelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Refresh, k.Leave, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k DuelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Refresh},
		{k.Leave, k.Quit},
	}
}

// DefaultDuelKeyMap returns default key bindings.
func DefaultDuelKeyMap() DuelKeyMap {
	return DuelKeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send move"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		Leave: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "leave"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ParseMove turns typed input such as "e2e4", "e2-e4" or "e7 e8 q" into a
// move payload. Squares are checked for shape only; legality is the
// server's call.
func ParseMove(input string) (multiplayer.MovePayload, error) {
	s := strings.ToLower(input)
	s = strings.NewReplacer(" ", "", "-", "", "=", "").Replace(s)

	if len(s) != 4 && len(s) != 5 {
		return multiplayer.MovePayload{}, fmt.Errorf("expected a move like e2e4, got %q", input)
	}

	from, to := s[:2], s[2:4]
	if !isSquare(from) || !isSquare(to) {
		return multiplayer.MovePayload{}, fmt.Errorf("%q is not a pair of squares", input)
	}

	mv := multiplayer.MovePayload{From: from, To: to}
	if len(s) == 5 {
		if !strings.ContainsRune("qrbn", rune(s[4])) {
			return multiplayer.MovePayload{}, fmt.Errorf("unknown promotion piece %q", s[4:])
		}
		mv.Promotion = s[4:]
	}
	return mv, nil
}

func isSquare(s string) bool {
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
