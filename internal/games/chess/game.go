// Package chess implements the chess rules oracle on top of corentings/chess.
// Positions are FEN strings; moves arrive in UCI form split into from, to and
// an optional promotion piece.
package chess

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/registry"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Game is the chess oracle. It holds no state; every call decodes the
// position it is given.
type Game struct{}

// New creates a chess oracle.
func New() *Game {
	return &Game{}
}

func init() {
	registry.Register("chess", func() registry.Game {
		return New()
	})
}

// ID returns the game identifier.
func (g *Game) ID() string { return "chess" }

// Title returns the display name.
func (g *Game) Title() string { return "Chess" }

// Roles returns the labels of the first and second mover.
func (g *Game) Roles() [2]string { return [2]string{"white", "black"} }

// Start returns the initial position.
func (g *Game) Start() multiplayer.Position {
	return multiplayer.Position(StartFEN)
}

// Apply plays mv on pos. A missing promotion piece defaults to a queen
// when the move needs one.
func (g *Game) Apply(pos multiplayer.Position, mv multiplayer.MovePayload) (multiplayer.Position, error) {
	uci := strings.ToLower(strings.TrimSpace(mv.From) + strings.TrimSpace(mv.To) + strings.TrimSpace(mv.Promotion))

	game, err := load(pos)
	if err != nil {
		return "", fmt.Errorf("%w: %v", multiplayer.ErrIllegalMove, err)
	}
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		if mv.Promotion != "" {
			return "", fmt.Errorf("%w: %s: %v", multiplayer.ErrIllegalMove, uci, err)
		}
		// Reload: a failed push must not leave partial state behind.
		game, _ = load(pos)
		if perr := game.PushNotationMove(uci+"q", nchess.UCINotation{}, nil); perr != nil {
			return "", fmt.Errorf("%w: %s: %v", multiplayer.ErrIllegalMove, uci, err)
		}
	}
	return multiplayer.Position(game.FEN()), nil
}

// Status reports whether pos is over and whose turn it is.
func (g *Game) Status(pos multiplayer.Position) (multiplayer.PositionStatus, error) {
	game, err := load(pos)
	if err != nil {
		return multiplayer.PositionStatus{}, err
	}

	st := multiplayer.PositionStatus{ToMove: slotOf(game.Position().Turn())}
	if game.Outcome() != nchess.NoOutcome {
		st.Terminal = true
		st.Checkmate = game.Method() == nchess.Checkmate
	}
	return st, nil
}

func load(pos multiplayer.Position) (*nchess.Game, error) {
	opt, err := nchess.FEN(string(pos))
	if err != nil {
		return nil, fmt.Errorf("chess: cannot decode position: %w", err)
	}
	return nchess.NewGame(opt), nil
}

func slotOf(c nchess.Color) multiplayer.Slot {
	if c == nchess.White {
		return multiplayer.SlotFirst
	}
	return multiplayer.SlotSecond
}
