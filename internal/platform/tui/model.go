package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
	"github.com/vovakirdan/duelhub/internal/registry"
)

// Phase is where a participant is in the duel flow.
type Phase int

const (
	PhaseConnecting Phase = iota // Waiting for the first coordinator event
	PhaseQueued                  // In the matchmaking queue
	PhasePlaying                 // Bound to an active session
	PhaseEnded                   // Session over, outcome shown
	PhaseClosed                  // Connection gone
)

// eventMsg wraps a coordinator event for the Bubble Tea loop.
type eventMsg struct {
	evt multiplayer.Event
}

// linkClosedMsg is sent when the link stops delivering events.
type linkClosedMsg struct{}

// DuelModel is the Bubble Tea model for one participant's duel.
// The same model runs inside SSH sessions and in `duelhub play`.
type DuelModel struct {
	link        Link
	game        registry.Game
	displayName string

	phase       Phase
	sessionID   multiplayer.SessionID
	slot        multiplayer.Slot
	role        string
	opponent    multiplayer.Participant
	position    multiplayer.Position
	lastMove    string
	outcome     string
	result      multiplayer.Result
	notice      string
	errMsg      string
	queueLength int

	input    textinput.Model
	keys     DuelKeyMap
	help     help.Model
	width    int
	height   int
	quitting bool
}

// NewDuelModel creates a duel model reading from link. game renders positions.
func NewDuelModel(link Link, game registry.Game, displayName string) DuelModel {
	ti := textinput.New()
	ti.Placeholder = "e2e4"
	ti.CharLimit = 8
	ti.Width = 12
	ti.Prompt = "move> "
	ti.Focus()

	return DuelModel{
		link:        link,
		game:        game,
		displayName: displayName,
		slot:        multiplayer.NoSlot,
		input:       ti,
		keys:        DefaultDuelKeyMap(),
		help:        help.New(),
	}
}

// Init starts listening for events.
func (m DuelModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent(), tickCmd(queuePollInterval))
}

// waitForEvent returns a command that waits for the next coordinator event.
func (m DuelModel) waitForEvent() tea.Cmd {
	events, done := m.link.Events(), m.link.Done()
	return func() tea.Msg {
		select {
		case evt, ok := <-events:
			if !ok {
				return linkClosedMsg{}
			}
			return eventMsg{evt: evt}
		case <-done:
			return linkClosedMsg{}
		}
	}
}

// Update handles messages.
func (m DuelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case eventMsg:
		m = m.handleEvent(msg.evt)
		return m, m.waitForEvent()
	case linkClosedMsg:
		m.phase = PhaseClosed
		if m.notice == "" {
			m.notice = "Connection closed"
		}
		return m, nil
	case TickMsg:
		if m.phase != PhaseQueued {
			return m, tickCmd(queuePollInterval)
		}
		m.report(m.link.RequestQueueLength())
		return m, tickCmd(queuePollInterval)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m DuelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Leave):
		if m.phase == PhasePlaying {
			m.report(m.link.Leave(m.opponent.ID, m.displayName))
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		if m.phase == PhasePlaying || m.phase == PhaseEnded {
			m.report(m.link.RequestState())
		} else {
			m.report(m.link.RequestQueueLength())
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submitMove()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m DuelModel) submitMove() (tea.Model, tea.Cmd) {
	if m.phase != PhasePlaying {
		m.errMsg = "You are not in a game"
		return m, nil
	}

	mv, err := ParseMove(m.input.Value())
	if err != nil {
		m.errMsg = err.Error()
		return m, nil
	}

	m.errMsg = ""
	m.input.Reset()
	// The mover's own position is never pushed, so ask for it right after.
	if err := m.link.Move(mv); err != nil {
		m.report(err)
		return m, nil
	}
	m.lastMove = formatMove(mv)
	m.report(m.link.RequestState())
	return m, nil
}

func (m DuelModel) handleEvent(evt multiplayer.Event) DuelModel {
	switch e := evt.(type) {
	case multiplayer.QueuedEvent:
		if e.Queued && m.phase != PhasePlaying {
			m.phase = PhaseQueued
		}

	case multiplayer.QueueLengthEvent:
		m.queueLength = e.Length

	case multiplayer.AssignedRoleEvent:
		m.phase = PhasePlaying
		m.sessionID = e.SessionID
		m.slot = e.Slot
		m.role = e.Role
		m.outcome = ""
		m.result = ""
		m.errMsg = ""

	case multiplayer.SessionAssignedEvent:
		m.sessionID = e.SessionID

	case multiplayer.OpponentInfoEvent:
		m.opponent = e.Opponent

	case multiplayer.CurrentStateEvent:
		m.position = e.Position

	case multiplayer.MoveEvent:
		if e.Move.FEN != "" {
			m.position = multiplayer.Position(e.Move.FEN)
		}
		m.lastMove = formatMove(e.Move)
		m.errMsg = ""

	case multiplayer.SessionEndedEvent:
		m.phase = PhaseEnded
		m.result = e.Outcome.ResultFor(m.slot)
		m.outcome = describeOutcome(e.Outcome, m.result)
		m.report(m.link.Acknowledge(e.SessionID))

	case multiplayer.OpponentReconnectedEvent:
		m.notice = fmt.Sprintf("%s reconnected", e.DisplayName)

	case multiplayer.OpponentDisconnectedEvent:
		m.notice = fmt.Sprintf("%s left the game", e.DisplayName)
		if m.phase == PhasePlaying {
			m.phase = PhaseEnded
			m.outcome = "Opponent left"
		}

	case multiplayer.MatchHistoryUpdatedEvent:
		m.notice = "Result saved to your match history"

	case multiplayer.ErrorEvent:
		m.errMsg = e.Message
	}
	return m
}

// report records a transport error so the user can see it.
func (m *DuelModel) report(err error) {
	if err != nil {
		m.errMsg = err.Error()
	}
}

func formatMove(mv multiplayer.MovePayload) string {
	return mv.From + mv.To + mv.Promotion
}

func describeOutcome(o multiplayer.Outcome, r multiplayer.Result) string {
	how := o.Reason.String()
	switch r {
	case multiplayer.ResultWin:
		return "You won by " + how
	case multiplayer.ResultLose:
		return "You lost by " + how
	default:
		return "Draw"
	}
}

// View renders the duel screen.
func (m DuelModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := "DUEL"
	if m.game != nil {
		title = strings.ToUpper(m.game.Title()) + " DUEL"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.position != "" && m.game != nil {
		perspective := m.slot
		if !perspective.Valid() {
			perspective = multiplayer.SlotFirst
		}
		b.WriteString(RenderBoard(m.game.Render(m.position, perspective)))
		b.WriteString("\n")
	}

	if m.lastMove != "" {
		b.WriteString(mutedStyle.Render("Last move: " + m.lastMove))
		b.WriteString("\n")
	}

	if m.outcome != "" {
		b.WriteString(outcomeStyle(m.result).Render(m.outcome))
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(infoStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}

	if m.phase == PhasePlaying {
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m DuelModel) statusLine() string {
	switch m.phase {
	case PhaseConnecting:
		return "Connecting..."
	case PhaseQueued:
		return fmt.Sprintf("Waiting for an opponent (%d in queue)", m.queueLength)
	case PhasePlaying, PhaseEnded:
		opp := m.opponent.DisplayName
		if opp == "" {
			opp = "?"
		}
		return fmt.Sprintf("You are %s against %s", m.role, opp)
	default:
		return "Disconnected"
	}
}

func outcomeStyle(r multiplayer.Result) lipgloss.Style {
	switch r {
	case multiplayer.ResultWin:
		return winStyle
	case multiplayer.ResultLose:
		return loseStyle
	default:
		return drawStyle
	}
}

// Phase returns the current phase.
func (m DuelModel) Phase() Phase {
	return m.phase
}

// SessionID returns the id of the last session the participant was bound to.
func (m DuelModel) SessionID() multiplayer.SessionID {
	return m.sessionID
}

// IsQuitting returns true if the user asked to quit.
func (m DuelModel) IsQuitting() bool {
	return m.quitting
}
