package chess

import (
	"errors"
	"strings"
	"testing"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/registry"
)

func play(t *testing.T, g *Game, pos multiplayer.Position, moves ...string) multiplayer.Position {
	t.Helper()
	for _, m := range moves {
		next, err := g.Apply(pos, multiplayer.MovePayload{From: m[:2], To: m[2:4], Promotion: m[4:]})
		if err != nil {
			t.Fatalf("Apply(%s) failed: %v", m, err)
		}
		pos = next
	}
	return pos
}

func TestStartPosition(t *testing.T) {
	g := New()
	st, err := g.Status(g.Start())
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if st.Terminal || st.ToMove != multiplayer.SlotFirst {
		t.Errorf("Expected white to move in a live position, got %+v", st)
	}
}

func TestApplyLegalMove(t *testing.T) {
	g := New()
	pos := play(t, g, g.Start(), "e2e4")

	if !strings.HasPrefix(string(pos), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") {
		t.Errorf("Unexpected position after e2e4: %s", pos)
	}
	st, err := g.Status(pos)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if st.ToMove != multiplayer.SlotSecond {
		t.Errorf("Expected black to move, got %v", st.ToMove)
	}
}

func TestApplyRejectsIllegalMoves(t *testing.T) {
	g := New()
	for _, mv := range []multiplayer.MovePayload{
		{From: "e2", To: "e5"},
		{From: "e7", To: "e5"}, // wrong side
		{From: "z9", To: "e4"},
	} {
		if _, err := g.Apply(g.Start(), mv); !errors.Is(err, multiplayer.ErrIllegalMove) {
			t.Errorf("Apply(%+v): expected ErrIllegalMove, got %v", mv, err)
		}
	}
}

func TestCheckmateStatus(t *testing.T) {
	g := New()
	pos := play(t, g, g.Start(), "f2f3", "e7e5", "g2g4", "d8h4")

	st, err := g.Status(pos)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if !st.Terminal || !st.Checkmate || st.ToMove != multiplayer.SlotFirst {
		t.Fatalf("Expected white to be mated, got %+v", st)
	}

	o, err := multiplayer.OutcomeFor(st)
	if err != nil {
		t.Fatalf("OutcomeFor() failed: %v", err)
	}
	if o.Winner != multiplayer.SlotSecond {
		t.Errorf("Expected black to win, got %v", o.Winner)
	}
}

func TestStalemateIsDraw(t *testing.T) {
	g := New()
	st, err := g.Status("7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if !st.Terminal || st.Checkmate {
		t.Errorf("Expected a terminal non-mate position, got %+v", st)
	}
}

func TestInsufficientMaterialIsDraw(t *testing.T) {
	g := New()
	// The white king takes the last black piece; two bare kings remain.
	pos := play(t, g, "k7/8/8/8/8/8/6q1/7K w - - 0 1", "h1g2")

	st, err := g.Status(pos)
	if err != nil {
		t.Fatalf("Status() failed: %v", err)
	}
	if !st.Terminal || st.Checkmate {
		t.Errorf("Expected a terminal non-mate position, got %+v", st)
	}
	if st.ToMove != multiplayer.SlotSecond {
		t.Errorf("Expected black to move, got %s", st.ToMove)
	}

	outcome, err := multiplayer.OutcomeFor(st)
	if err != nil {
		t.Fatalf("OutcomeFor() failed: %v", err)
	}
	if !outcome.Draw || outcome.Winner != multiplayer.NoSlot {
		t.Errorf("Expected a draw, got %+v", outcome)
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	g := New()
	pos, err := g.Apply("8/P6k/8/8/8/8/8/K7 w - - 0 1", multiplayer.MovePayload{From: "a7", To: "a8"})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if !strings.HasPrefix(string(pos), "Q7/") {
		t.Errorf("Expected a queen on a8, got %s", pos)
	}

	pos, err = g.Apply("8/P6k/8/8/8/8/8/K7 w - - 0 1", multiplayer.MovePayload{From: "a7", To: "a8", Promotion: "n"})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if !strings.HasPrefix(string(pos), "N7/") {
		t.Errorf("Expected a knight on a8, got %s", pos)
	}
}

func TestStatusRejectsGarbage(t *testing.T) {
	if _, err := New().Status("not a position"); err == nil {
		t.Error("Expected an error for an unreadable position")
	}
}

func TestRenderPerspective(t *testing.T) {
	g := New()

	white := strings.Split(g.Render(g.Start(), multiplayer.SlotFirst), "\n")
	if white[0] != "8 r n b q k b n r" || white[8] != "  a b c d e f g h" {
		t.Errorf("Unexpected white view:\n%s", strings.Join(white, "\n"))
	}

	black := strings.Split(g.Render(g.Start(), multiplayer.SlotSecond), "\n")
	if black[0] != "1 R N B K Q B N R" || black[8] != "  h g f e d c b a" {
		t.Errorf("Unexpected black view:\n%s", strings.Join(black, "\n"))
	}

	if got := g.Render("bogus", multiplayer.SlotFirst); got != "invalid position" {
		t.Errorf("Expected invalid position marker, got %q", got)
	}
}

func TestRegistered(t *testing.T) {
	if !registry.Exists("chess") {
		t.Fatal("Expected chess to be registered")
	}
	g, err := registry.Create("chess")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if g.Roles() != [2]string{"white", "black"} {
		t.Errorf("Unexpected roles %v", g.Roles())
	}
}
