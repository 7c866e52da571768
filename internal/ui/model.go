package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	bar "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertwitch/gocopy/internal/progress"
	"github.com/desertwitch/gocopy/internal/schema"
)

const (
	// maxLogLines is the amount of log lines kept for the logs panel.
	maxLogLines = 100

	// closedLinger is how long a closed dialog stays in the list.
	closedLinger = 3 * time.Second
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	// selectedBorderStyle defines the style for the selected panel's borders.
	selectedBorderStyle = borderStyle.
				BorderForeground(lipgloss.Color("#04B575"))

	// promptBorderStyle defines the style for a prompt's borders.
	promptBorderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("#F25D94"))

	// infoStyle defines the style for a panel's text.
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	// answerStyle defines the style for a prompt's answers.
	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1)

	// selectedAnswerStyle defines the style for the highlighted answer.
	selectedAnswerStyle = answerStyle.
				Bold(true).
				Background(lipgloss.Color("#F25D94"))

	// helpStyle defines the style for the help panel's text.
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// removeMsg removes a closed dialog from the list.
type removeMsg struct {
	id schema.DialogID
}

type dialogEntry struct {
	view   progress.View
	result progress.Result
}

// prompt is a decision prompt (req is set) or a cancel confirmation.
type prompt struct {
	id      schema.DialogID
	req     *schema.DecisionRequest
	answers []schema.Answer
	reply   chan schema.Answer
	confirm chan bool
	cursor  int
}

func (p *prompt) labels() []string {
	if p.req == nil {
		return []string{"Yes", "No"}
	}

	labels := make([]string, 0, len(p.answers))
	for _, a := range p.answers {
		labels = append(labels, answerLabel(a))
	}

	return labels
}

func (p *prompt) move(delta int) {
	n := len(p.labels())
	p.cursor = (p.cursor + delta + n) % n
}

func (p *prompt) choose() {
	if p.req == nil {
		p.answerConfirm(p.cursor == 0)

		return
	}

	p.answerDecision(p.answers[p.cursor])
}

func (p *prompt) dismiss() {
	if p.req == nil {
		p.answerConfirm(false)

		return
	}

	for _, a := range p.answers {
		if a == schema.AnswerCancel {
			p.answerDecision(a)

			return
		}
	}

	p.answerDecision(p.answers[len(p.answers)-1])
}

func (p *prompt) answerDecision(a schema.Answer) {
	select {
	case p.reply <- a:
	default:
	}
}

func (p *prompt) answerConfirm(yes bool) {
	select {
	case p.confirm <- yes:
	default:
	}
}

// TeaModel is the principal [tea.Model] for the command-line user interface.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler

	fullWidthWithBorders int

	dialogs  map[schema.DialogID]*dialogEntry
	order    []schema.DialogID
	selected int
	prompts  []*prompt

	bar          bar.Model
	logsViewport viewport.Model
	logs         []string

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		uiHandler: uiHandler,
		cancel:    cancel,
		dialogs:   make(map[schema.DialogID]*dialogEntry),
		order:     []schema.DialogID{},
		bar: bar.New(
			bar.WithDefaultGradient(),
			bar.WithWidth(80),
		),
		logsViewport: viewport.New(80, 10),
		logs:         make([]string, 0, maxLogLines),
	}
}

// Init initializes the model within a [tea.Program].
func (m TeaModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// Update is the principal message handling method of the model.
// It sets the internal state of the model, for later rendering.
//
//nolint:mnd,funlen,ireturn,cyclop
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()

			return m, tea.Quit
		}

		if len(m.prompts) > 0 {
			return m.updatePrompt(msg), nil
		}

		if model, cmd, handled := m.updateKeys(msg); handled {
			return model, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.bar.Width = max(m.fullWidthWithBorders-8, 10)

		// The logs panel takes about 30% of the height.
		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = max(m.height*3/10-3, 3)
		m.refreshLogs()

		if !m.ready {
			m.ready = true
			m.uiHandler.Ready.Store(true)
		}

	case viewMsg:
		entry, ok := m.dialogs[msg.view.ID]
		if !ok {
			entry = &dialogEntry{}
			m.dialogs[msg.view.ID] = entry
			m.order = append(m.order, msg.view.ID)
		}
		entry.view = msg.view

	case closedMsg:
		if entry, ok := m.dialogs[msg.id]; ok {
			entry.result = msg.result
			id := msg.id
			cmds = append(cmds, tea.Tick(closedLinger, func(time.Time) tea.Msg {
				return removeMsg{id: id}
			}))
		}
		m.prompts = m.withoutPrompts(msg.id)

	case removeMsg:
		delete(m.dialogs, msg.id)
		order := make([]schema.DialogID, 0, len(m.order))
		for _, id := range m.order {
			if id != msg.id {
				order = append(order, id)
			}
		}
		m.order = order
		m.selected = min(m.selected, max(len(m.order)-1, 0))

	case activateMsg:
		m.selectDialog(msg.id)

	case promptMsg:
		req := msg.req
		m.prompts = append(m.prompts, &prompt{
			id:      msg.id,
			req:     &req,
			answers: req.Answers(),
			reply:   msg.reply,
		})
		m.selectDialog(msg.id)

	case confirmMsg:
		m.prompts = append(m.prompts, &prompt{
			id:      msg.id,
			confirm: msg.reply,
		})
		m.selectDialog(msg.id)

	case closePromptsMsg:
		m.prompts = m.withoutPrompts(msg.id)

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))
		m.refreshLogs()
	}

	// Handle viewport updates.
	m.logsViewport, cmd = m.logsViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m TeaModel) updatePrompt(msg tea.KeyMsg) TeaModel {
	p := m.prompts[0]

	switch msg.String() {
	case "left", "shift+tab":
		p.move(-1)

		return m

	case "right", "tab":
		p.move(1)

		return m

	case "enter":
		p.choose()

	case "esc":
		p.dismiss()

	case "y":
		if p.req != nil {
			return m
		}
		p.answerConfirm(true)

	case "n":
		if p.req != nil {
			return m
		}
		p.answerConfirm(false)

	default:
		return m
	}

	m.prompts = m.prompts[1:]

	return m
}

func (m TeaModel) updateKeys(msg tea.KeyMsg) (TeaModel, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		return m, tea.Quit, true

	case "tab":
		if len(m.order) > 0 {
			m.selected = (m.selected + 1) % len(m.order)
		}

		return m, nil, true

	case "p":
		return m, m.dialogCmd((*progress.Dialog).TogglePause), true

	case "c":
		return m, m.dialogCmd((*progress.Dialog).Cancel), true

	case "a":
		return m, m.dialogCmd((*progress.Dialog).AutoPause), true

	case "m":
		return m, m.dialogCmd(func(d *progress.Dialog) {
			if d.View().Minimized {
				d.Restore()
			} else {
				d.Minimize()
			}
		}), true

	case "l":
		manager := m.uiHandler.Manager()
		if manager == nil {
			return m, nil, true
		}

		limit := manager.Options().SpeedLimit
		if limit == 0 {
			slog.Warn("No speed limit configured (use --speed-limit)")

			return m, nil, true
		}

		return m, m.dialogCmd(func(d *progress.Dialog) {
			d.SetSpeedLimit(!d.View().SpeedLimit, limit)
		}), true
	}

	return m, nil, false
}

// dialogCmd produces a [tea.Cmd] applying fn to the selected dialog. It runs
// outside of the event loop, as a dialog might be busy asking a question.
func (m TeaModel) dialogCmd(fn func(d *progress.Dialog)) tea.Cmd {
	manager := m.uiHandler.Manager()
	id := m.selectedID()

	if manager == nil || id == "" {
		return nil
	}

	return func() tea.Msg {
		if d, ok := manager.Dialog(id); ok {
			fn(d)
		}

		return nil
	}
}

func (m TeaModel) selectedID() schema.DialogID {
	if m.selected < 0 || m.selected >= len(m.order) {
		return ""
	}

	return m.order[m.selected]
}

func (m *TeaModel) selectDialog(id schema.DialogID) {
	for i, oid := range m.order {
		if oid == id {
			m.selected = i

			return
		}
	}
}

func (m TeaModel) withoutPrompts(id schema.DialogID) []*prompt {
	prompts := make([]*prompt, 0, len(m.prompts))
	for _, p := range m.prompts {
		if p.id != id {
			prompts = append(prompts, p)
		}
	}

	return prompts
}

func (m *TeaModel) refreshLogs() {
	if len(m.logs) == 0 {
		return
	}

	logs := lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n"))

	m.logsViewport.SetContent(logs)
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the GUI..."
	}

	sections := []string{}

	for i, id := range m.order {
		sections = append(sections, m.formatDialogView(m.dialogs[id], i == m.selected))
	}

	if len(m.order) == 0 {
		sections = append(sections, borderStyle.
			Width(m.fullWidthWithBorders).
			Render(infoStyle.Render("No operations.")))
	}

	if len(m.prompts) > 0 {
		sections = append(sections, m.formatPromptView(m.prompts[0]))
	}

	sections = append(sections, borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render("Process Information"),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(m.logsViewport.View()),
			),
		))

	help := "tab: select • p: pause/resume • c: cancel • a: wait in queue • m: minimize • l: speed limit • q: quit gui • ctrl+c: quit program"
	if len(m.prompts) > 0 {
		help = "left/right: choose • enter: confirm • esc: cancel • ctrl+c: quit program"
	}

	sections = append(sections, helpStyle.Width(m.fullWidthWithBorders).Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// formatDialogView is a helper function for rendering a dialog panel.
func (m TeaModel) formatDialogView(entry *dialogEntry, selected bool) string {
	view := entry.view

	style := borderStyle
	if selected {
		style = selectedBorderStyle
	}

	title := view.Title
	if entry.result != progress.ResultNone {
		title = fmt.Sprintf("%s (%s)", view.Caption, entry.result)
	}

	header := titleStyle.Width(m.fullWidthWithBorders).Render(title)

	if view.Minimized {
		return style.Width(m.fullWidthWithBorders).Render(header)
	}

	var details strings.Builder

	fmt.Fprintf(&details, "%s %s\n", view.Operation, view.Source)
	if view.Target != "" {
		fmt.Fprintf(&details, "%s %s\n", view.Preposition, view.Target)
	}

	status := fmt.Sprintf("State: %s", view.State)
	if view.StatusVisible && view.Status != "" {
		status = view.Status
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		infoStyle.Width(m.fullWidthWithBorders).Render(strings.TrimSuffix(details.String(), "\n")),
		"File  "+m.bar.ViewAs(float64(view.FilePermille)/1000),  //nolint:mnd
		"Total "+m.bar.ViewAs(float64(view.TotalPermille)/1000), //nolint:mnd
		infoStyle.Width(m.fullWidthWithBorders).Render(status),
	)

	return style.Width(m.fullWidthWithBorders).Render(content)
}

// formatPromptView is a helper function for rendering the foremost prompt.
func (m TeaModel) formatPromptView(p *prompt) string {
	caption := "Cancel operation"
	lines := []string{"Do you really want to cancel the operation?"}

	if p.req != nil {
		caption = p.req.Caption
		lines = []string{p.req.Path}
		if p.req.Detail != "" {
			lines = append(lines, p.req.Detail)
		}
		if p.req.Path2 != "" {
			lines = append(lines, "", p.req.Path2)
		}
		if p.req.Detail2 != "" {
			lines = append(lines, p.req.Detail2)
		}
	}

	if entry, ok := m.dialogs[p.id]; ok {
		caption = fmt.Sprintf("%s: %s", entry.view.Caption, caption)
	}

	answers := []string{}
	for i, label := range p.labels() {
		if i == p.cursor {
			answers = append(answers, selectedAnswerStyle.Render(label))
		} else {
			answers = append(answers, answerStyle.Render(label))
		}
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.fullWidthWithBorders).Render(caption),
		infoStyle.Width(m.fullWidthWithBorders).Render(strings.Join(lines, "\n")),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, answers...),
	)

	return promptBorderStyle.Width(m.fullWidthWithBorders).Render(content)
}

func answerLabel(a schema.Answer) string {
	switch a {
	case schema.AnswerOK:
		return "OK"
	case schema.AnswerRetry:
		return "Retry"
	case schema.AnswerSkip:
		return "Skip"
	case schema.AnswerSkipAll:
		return "Skip all"
	case schema.AnswerYes:
		return "Yes"
	case schema.AnswerYesAll:
		return "Yes to all"
	case schema.AnswerIgnore:
		return "Ignore"
	case schema.AnswerIgnoreAll:
		return "Ignore all"
	case schema.AnswerCancel:
		return "Cancel"
	case schema.AnswerNone:
		return "None"
	default:
		return a.String()
	}
}
