package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	winStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	loseStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	drawStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	pieceWhite  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	pieceBlack  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	emptySquare = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderBoard colours a plain-text board drawn by a game. Upper-case letters
// are first-mover pieces, lower-case second-mover pieces, dots are empty
// squares. Runs of the same style are grouped to keep escape sequences short.
func RenderBoard(plain string) string {
	lines := strings.Split(plain, "\n")
	for i, line := range lines {
		lines[i] = renderLine(line)
	}
	return boardStyle.Render(strings.Join(lines, "\n"))
}

func renderLine(line string) string {
	var sb strings.Builder
	var run strings.Builder
	current := -1

	flush := func() {
		if run.Len() == 0 {
			return
		}
		sb.WriteString(styleFor(current).Render(run.String()))
		run.Reset()
	}

	for _, r := range line {
		kind := classify(r)
		if kind != current {
			flush()
			current = kind
		}
		run.WriteRune(r)
	}
	flush()
	return sb.String()
}

const (
	runePlain = iota
	runeWhite
	runeBlack
	runeEmpty
)

func classify(r rune) int {
	switch {
	case r == '.':
		return runeEmpty
	case strings.ContainsRune("PNBRQK", r):
		return runeWhite
	case strings.ContainsRune("pnbrqk", r):
		return runeBlack
	default:
		return runePlain
	}
}

func styleFor(kind int) lipgloss.Style {
	switch kind {
	case runeWhite:
		return pieceWhite
	case runeBlack:
		return pieceBlack
	case runeEmpty:
		return emptySquare
	default:
		return lipgloss.NewStyle()
	}
}
