// Package ui provides the terminal presentation layer: a route entry form
// and a playback view fed by controller status updates.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/waytales/route"
	"github.com/dgnsrekt/waytales/story"
)

type view int

const (
	viewForm view = iota
	viewStarting
	viewPlayer
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	textStyle   = lipgloss.NewStyle().PaddingLeft(2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingTop(1)
)

// StatusMsg carries a controller status update into the event loop.
type StatusMsg story.Status

type startedMsg struct{}

type startFailedMsg struct{ err error }

// Model is the Bubble Tea model for the narration app.
type Model struct {
	controller *story.Controller
	planner    route.Planner

	view    view
	inputs  []textinput.Model // start, end
	focused int
	mode    route.Mode
	spin    spinner.Model

	status story.Status
	errMsg string
	width  int
}

// NewModel creates the UI model around the controller and route planner.
func NewModel(controller *story.Controller, planner route.Planner) Model {
	start := textinput.New()
	start.Placeholder = "Start location"
	start.Focus()
	end := textinput.New()
	end.Placeholder = "Destination"

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		controller: controller,
		planner:    planner,
		inputs:     []textinput.Model{start, end},
		mode:       route.ModeWalking,
		spin:       sp,
		width:      80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StatusMsg:
		m.status = story.Status(msg)
		return m, nil

	case startedMsg:
		m.view = viewPlayer
		m.status = m.controller.Status()
		return m, nil

	case startFailedMsg:
		m.view = viewForm
		m.errMsg = msg.err.Error()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateInputs(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.controller.Reset()
		return m, tea.Quit
	}

	switch m.view {
	case viewForm:
		return m.handleFormKey(msg)
	case viewPlayer:
		return m.handlePlayerKey(msg)
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		m.inputs[m.focused].Blur()
		m.focused = (m.focused + 1) % len(m.inputs)
		m.inputs[m.focused].Focus()
		return m, nil

	case "ctrl+t":
		if m.mode == route.ModeWalking {
			m.mode = route.ModeDriving
		} else {
			m.mode = route.ModeWalking
		}
		return m, nil

	case "enter":
		start := strings.TrimSpace(m.inputs[0].Value())
		end := strings.TrimSpace(m.inputs[1].Value())
		if start == "" || end == "" {
			m.errMsg = "both locations are required"
			return m, nil
		}
		m.errMsg = ""
		m.view = viewStarting
		return m, tea.Batch(m.spin.Tick, m.startStory(start, end))

	case "q", "esc":
		return m, tea.Quit
	}

	return m.updateInputs(msg)
}

func (m Model) handlePlayerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		if err := m.controller.Toggle(); err != nil {
			m.errMsg = err.Error()
		}
		m.status = m.controller.Status()
		return m, nil

	case "r":
		m.controller.Reset()
		m.view = viewForm
		m.status = story.Status{}
		m.errMsg = ""
		return m, nil

	case "q", "esc":
		m.controller.Reset()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

// startStory plans the route and runs the synchronous story start off the
// event loop.
func (m Model) startStory(start, end string) tea.Cmd {
	planner := m.planner
	controller := m.controller
	mode := m.mode

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		sum, err := planner.Plan(ctx, route.Request{Start: start, End: end, Mode: mode})
		if err != nil {
			return startFailedMsg{err: err}
		}
		if err := controller.Start(ctx, story.RouteSummary{Summary: sum}); err != nil {
			return startFailedMsg{err: err}
		}
		return startedMsg{}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	switch m.view {
	case viewForm:
		return m.formView()
	case viewStarting:
		return m.startingView()
	default:
		return m.playerView()
	}
}

func (m Model) formView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("waytales") + "\n")
	b.WriteString(labelStyle.Render("a story for the road") + "\n\n")
	b.WriteString(m.inputs[0].View() + "\n")
	b.WriteString(m.inputs[1].View() + "\n\n")
	b.WriteString(labelStyle.Render("mode: ") + string(m.mode) + "\n")
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString(helpStyle.Render("enter start · tab switch field · ctrl+t mode · q quit"))
	return b.String()
}

func (m Model) startingView() string {
	return fmt.Sprintf("\n %s planning the route and writing the opening…\n", m.spin.View())
}

func (m Model) playerView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("waytales") + "\n")

	if sum, ok := m.controller.Route(); ok {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%s → %s · %s\n\n",
			sum.StartLabel, sum.EndLabel, sum.DurationText)))
	}

	b.WriteString(statusStyle.Render(StatusLine(m.status)) + "\n\n")

	if text := m.transcriptText(); text != "" {
		width := m.width - 4
		if width > 76 {
			width = 76
		}
		wrapped := wordwrap.String(text, width)
		b.WriteString(textStyle.Render(wrapped) + "\n")
	}

	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg) + "\n")
	}
	b.WriteString(helpStyle.Render("space play/pause · r new route · q quit"))
	return b.String()
}

// transcriptText joins the story text up to the current segment, so the
// listener can read along. Falls back to the status text when the cursor is
// ahead of the transcript.
func (m Model) transcriptText() string {
	segs := m.controller.Transcript()
	var parts []string
	for _, seg := range segs {
		if m.status.Segment > 0 && seg.Index > m.status.Segment {
			break
		}
		parts = append(parts, seg.Text)
	}
	if len(parts) == 0 {
		return m.status.Text
	}
	return strings.Join(parts, "\n\n")
}

// StatusLine renders a one-line transport status for a controller status.
func StatusLine(s story.Status) string {
	var b strings.Builder
	switch s.State {
	case story.StatePlaying:
		fmt.Fprintf(&b, "▶ segment %d/%d · %s", s.Segment, s.Total, formatOffset(s.Offset))
	case story.StatePaused:
		fmt.Fprintf(&b, "⏸ segment %d/%d · %s", s.Segment, s.Total, formatOffset(s.Offset))
	case story.StateBuffering:
		fmt.Fprintf(&b, "… buffering segment %d/%d", s.Segment, s.Total)
	case story.StateFinished:
		b.WriteString("■ story finished")
	default:
		b.WriteString("idle")
	}
	if s.Generating {
		fmt.Fprintf(&b, " · writing part %d", s.Produced+1)
	}
	return b.String()
}

func formatOffset(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
