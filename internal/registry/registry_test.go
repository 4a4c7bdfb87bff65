package registry

import (
	"strings"
	"testing"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

// stubGame accepts any move and never ends.
type stubGame struct{ id string }

func (g stubGame) Start() multiplayer.Position { return "start" }

func (g stubGame) Apply(pos multiplayer.Position, mv multiplayer.MovePayload) (multiplayer.Position, error) {
	return pos + multiplayer.Position(" "+mv.From+mv.To), nil
}

func (g stubGame) Status(multiplayer.Position) (multiplayer.PositionStatus, error) {
	return multiplayer.PositionStatus{ToMove: multiplayer.SlotFirst}, nil
}

func (g stubGame) Roles() [2]string { return [2]string{"first", "second"} }
func (g stubGame) ID() string       { return g.id }
func (g stubGame) Title() string    { return strings.ToUpper(g.id) }

func (g stubGame) Render(pos multiplayer.Position, _ multiplayer.Slot) string {
	return string(pos)
}

func TestRegisterCreateAndList(t *testing.T) {
	Register("stub-a", func() Game { return stubGame{id: "stub-a"} })
	Register("stub-b", func() Game { return stubGame{id: "stub-b"} })

	if !Exists("stub-a") {
		t.Fatal("Expected stub-a to exist")
	}
	if Exists("stub-missing") {
		t.Error("Expected stub-missing to be absent")
	}

	g, err := Create("stub-b")
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if g.ID() != "stub-b" {
		t.Errorf("Expected id stub-b, got %s", g.ID())
	}

	var ids []string
	for _, info := range List() {
		if strings.HasPrefix(info.ID, "stub-") {
			ids = append(ids, info.ID+"="+info.Title)
		}
	}
	if strings.Join(ids, ",") != "stub-a=STUB-A,stub-b=STUB-B" {
		t.Errorf("Unexpected listing: %v", ids)
	}
}

func TestCreateUnknown(t *testing.T) {
	if _, err := Create("no-such-game"); err == nil {
		t.Error("Expected error for unknown game")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("stub-dup", func() Game { return stubGame{id: "stub-dup"} })

	defer func() {
		if recover() == nil {
			t.Error("Expected panic on duplicate registration")
		}
	}()
	Register("stub-dup", func() Game { return stubGame{id: "stub-dup"} })
}
