// Package tui provides the interactive chat terminal for huskyd.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/openhusky/huskyd/internal/brain"
	"github.com/openhusky/huskyd/internal/client"
	"github.com/openhusky/huskyd/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	userStyle   = lipgloss.NewStyle().Foreground(cyanColor).Bold(true)
	brainStyle  = lipgloss.NewStyle().Foreground(successColor)
	systemStyle = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor)
	helpStyle   = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)
)

// callTimeout bounds each gateway or Gemini round-trip.
const callTimeout = 60 * time.Second

// App is the chat TUI model.
type App struct {
	client   *client.Client
	brain    *brain.Brain
	input    textinput.Model
	viewport viewport.Model
	lines    []string
	width    int
	height   int
	busy     bool
	online   bool
}

type replyMsg struct {
	lines []string
}

type statusMsg struct {
	online bool
}

type errMsg struct {
	err error
}

// New creates the chat application. brain may be nil when no Gemini key
// is configured; the ask and see commands then report that.
func New(c *client.Client, b *brain.Brain) *App {
	ti := textinput.New()
	ti.Placeholder = "Type: see | ask <question> | photo | list | switch <algo> | task add trigger=<label> | help"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 80

	vp := viewport.New(80, 20)

	return &App{
		client:   c,
		brain:    b,
		input:    ti,
		viewport: vp,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	a.appendSystem("Huskylens2 chat. Type 'help' for commands.")
	return tea.Batch(
		textinput.Blink,
		a.checkGateway(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "up", "pgup":
			a.viewport.LineUp(3)

		case "down", "pgdown":
			a.viewport.LineDown(3)

		case "enter":
			line := strings.TrimSpace(a.input.Value())
			if line == "" || a.busy {
				return a, nil
			}
			a.input.SetValue("")
			a.appendUser(line)
			if line == "quit" || line == "exit" || line == "q" {
				return a, tea.Quit
			}
			a.busy = true
			return a, a.execute(line)
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 7
		a.refreshViewport()

	case replyMsg:
		a.busy = false
		a.lines = append(a.lines, msg.lines...)
		a.refreshViewport()

	case statusMsg:
		a.online = msg.online
		if !msg.online {
			a.appendError(fmt.Errorf("gateway unreachable"))
		}

	case errMsg:
		a.busy = false
		a.appendError(msg.err)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	status := brainStyle.Render("● GATEWAY")
	if !a.online {
		status = errorStyle.Render("○ GATEWAY")
	}
	gemini := systemStyle.Render("○ gemini off")
	if a.brain != nil {
		gemini = brainStyle.Render("● gemini")
	}

	header := titleStyle.Render("👀 Huskylens2 Chat")
	header += "  " + status
	header += "  " + gemini
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	b.WriteString(a.viewport.View())
	b.WriteString("\n")

	b.WriteString(inputBoxStyle.Render(a.input.View()))
	b.WriteString("\n")

	statusLine := " see:describe | ask:question | photo | list/current/switch | task add/list/cancel | Ctrl+C:quit"
	if a.busy {
		statusLine = " 🧠 working..."
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(statusLine))

	return b.String()
}

func (a *App) refreshViewport() {
	a.viewport.SetContent(strings.Join(a.lines, "\n"))
	a.viewport.GotoBottom()
}

func (a *App) appendUser(line string) {
	a.lines = append(a.lines, userStyle.Render("you> ")+line)
	a.refreshViewport()
}

func (a *App) appendSystem(line string) {
	a.lines = append(a.lines, systemStyle.Render(line))
	a.refreshViewport()
}

func (a *App) appendError(err error) {
	a.lines = append(a.lines, errorStyle.Render("error: "+err.Error()))
	a.refreshViewport()
}

func (a *App) checkGateway() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		_, err := a.client.CurrentAlgorithm(ctx)
		return statusMsg{online: err == nil}
	}
}

func (a *App) execute(line string) tea.Cmd {
	parts := strings.Fields(line)
	cmd := parts[0]
	arg := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		switch cmd {
		case "help", "?":
			return replyMsg{helpLines()}

		case "list", "1":
			algos, err := a.client.Algorithms(ctx)
			if err != nil {
				return errMsg{err}
			}
			lines := []string{systemStyle.Render("Available algorithms:")}
			for _, algo := range algos {
				lines = append(lines, "  • "+algo)
			}
			return replyMsg{lines}

		case "current", "2":
			current, err := a.client.CurrentAlgorithm(ctx)
			if err != nil {
				return errMsg{err}
			}
			return replyMsg{[]string{systemStyle.Render("Current algorithm: ") + current}}

		case "switch", "3":
			if arg == "" {
				return replyMsg{[]string{helpStyle.Render("Usage: switch <algorithm>")}}
			}
			if err := a.client.SwitchAlgorithm(ctx, arg); err != nil {
				return errMsg{err}
			}
			return replyMsg{[]string{brainStyle.Render("✓ Switched to " + arg)}}

		case "ask", "4":
			if arg == "" {
				return replyMsg{[]string{helpStyle.Render("Usage: ask <question>. Example: ask Is there a person?")}}
			}
			return a.interpret(ctx, arg)

		case "see", "5":
			return a.interpret(ctx, "")

		case "photo", "6":
			result, err := a.client.TakePhoto(ctx)
			if err != nil {
				return errMsg{err}
			}
			return replyMsg{[]string{brainStyle.Render("✓ Photo captured: " + result.ImageRef)}}

		case "task":
			return a.taskCommand(ctx, arg)

		default:
			return replyMsg{[]string{helpStyle.Render(fmt.Sprintf("Unknown command %q. Type 'help'.", cmd))}}
		}
	}
}

// interpret polls the camera and runs the snapshot through Gemini. An
// empty question means plain description.
func (a *App) interpret(ctx context.Context, question string) tea.Msg {
	snap, err := a.client.GetRecognition(ctx)
	if err != nil {
		return errMsg{err}
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return errMsg{err}
	}

	if a.brain == nil {
		labels := strings.Join(snap.Labels(), ", ")
		if labels == "" {
			labels = "(nothing)"
		}
		return replyMsg{[]string{
			systemStyle.Render("Gemini is not configured; raw view: ") + labels,
		}}
	}

	var answer string
	if question == "" {
		answer, err = a.brain.Describe(ctx, string(raw))
	} else {
		answer, err = a.brain.Answer(ctx, string(raw), question)
	}
	if err != nil {
		return errMsg{err}
	}
	return replyMsg{[]string{brainStyle.Render("🧠 " + answer)}}
}

// taskCommand handles "task add ...", "task list" and "task cancel <id>".
func (a *App) taskCommand(ctx context.Context, arg string) tea.Msg {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return replyMsg{[]string{helpStyle.Render("Usage: task add|list|cancel")}}
	}

	switch fields[0] {
	case "add":
		spec, err := parseTaskSpec(fields[1:])
		if err != nil {
			return replyMsg{[]string{helpStyle.Render(err.Error())}}
		}
		results, err := a.client.CreateTasks(ctx, []models.TaskSpec{spec})
		if err != nil {
			return errMsg{err}
		}
		if len(results) == 0 {
			return errMsg{fmt.Errorf("gateway returned no result")}
		}
		if !results[0].Accepted {
			return replyMsg{[]string{errorStyle.Render("✗ Rejected: " + results[0].Error)}}
		}
		return replyMsg{[]string{brainStyle.Render("✓ Task created: " + results[0].ID)}}

	case "list":
		tasks, err := a.client.ListTasks(ctx)
		if err != nil {
			return errMsg{err}
		}
		if len(tasks) == 0 {
			return replyMsg{[]string{systemStyle.Render("No tasks.")}}
		}
		lines := make([]string, 0, len(tasks))
		for _, t := range tasks {
			lines = append(lines, formatTaskLine(t))
		}
		return replyMsg{lines}

	case "cancel":
		if len(fields) < 2 {
			return replyMsg{[]string{helpStyle.Render("Usage: task cancel <id>")}}
		}
		if err := a.client.CancelTask(ctx, fields[1]); err != nil {
			return errMsg{err}
		}
		return replyMsg{[]string{brainStyle.Render("✓ Task cancelled")}}

	default:
		return replyMsg{[]string{helpStyle.Render("Usage: task add|list|cancel")}}
	}
}

// parseTaskSpec reads key=value pairs: trigger=cat time=now expires=<rfc3339>.
func parseTaskSpec(fields []string) (models.TaskSpec, error) {
	spec := models.TaskSpec{Handler: string(models.HandlerTakePhoto)}
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return spec, fmt.Errorf("expected key=value, got %q", f)
		}
		switch key {
		case "trigger":
			spec.Trigger = value
		case "time":
			spec.Time = value
		case "expires":
			spec.ExpiresAt = value
		case "handler":
			spec.Handler = value
		default:
			return spec, fmt.Errorf("unknown key %q (want trigger, time, expires, handler)", key)
		}
	}
	if spec.Trigger == "" && spec.Time == "" {
		return spec, fmt.Errorf("task needs trigger=<label> and/or time=<rfc3339|now>")
	}
	return spec, nil
}

func formatTaskLine(t models.Task) string {
	var cond []string
	if t.Trigger != "" {
		cond = append(cond, "trigger="+t.Trigger)
	}
	if t.Time != "" {
		cond = append(cond, "time="+t.Time)
	}
	return fmt.Sprintf("  %s %s  %s  [%s]", formatStatus(string(t.Status)), shortID(t.ID), strings.Join(cond, " "), t.Handler)
}

func formatStatus(status string) string {
	switch status {
	case "pending":
		return lipgloss.NewStyle().Foreground(warningColor).Render("○")
	case "fired":
		return lipgloss.NewStyle().Foreground(successColor).Render("●")
	case "expired":
		return lipgloss.NewStyle().Foreground(mutedColor).Render("◌")
	case "cancelled":
		return lipgloss.NewStyle().Foreground(errorColor).Render("✗")
	default:
		return "?"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func helpLines() []string {
	return []string{
		systemStyle.Render("Commands:"),
		"  1. list              list recognition algorithms",
		"  2. current           show the active algorithm",
		"  3. switch <algo>     activate an algorithm",
		"  4. ask <question>    ask Gemini about the current view",
		"  5. see               describe the current view",
		"  6. photo             take a photo",
		"  task add trigger=<label> [time=<rfc3339|now>] [expires=<rfc3339>]",
		"  task list            show scheduled tasks",
		"  task cancel <id>     cancel a pending task",
		"  quit                 exit",
	}
}
