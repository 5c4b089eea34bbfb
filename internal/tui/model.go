package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"statementqa/internal/domain"
	"statementqa/internal/service"
)

// AssistantPort is the TUI-facing subset of the assistant session.
type AssistantPort interface {
	Load(ctx context.Context, file domain.UploadedFile, password string) (*service.LoadStatus, error)
	Ask(ctx context.Context, q service.Query) (*domain.Answer, error)
	ClearCache() int
	Loaded() (string, bool)
}

type loadedMsg struct {
	status *service.LoadStatus
	err    error
}

type answerMsg struct {
	query  string
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx         context.Context
	assistant   AssistantPort
	input       textinput.Model
	viewport    viewport.Model
	mode        domain.Mode
	forceWeb    bool
	answer      *domain.Answer
	lastQuery   string
	overview    string
	status      string
	showSources bool
	busy        bool
	ready       bool
}

// New creates a chat model starting in the given mode.
func New(ctx context.Context, assistant AssistantPort, mode domain.Mode) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your statement, or /load <file> [password]"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if mode == "" {
		mode = domain.ModeConcise
	}
	return Model{
		ctx:       ctx,
		assistant: assistant,
		input:     ti,
		viewport:  vp,
		mode:      mode,
		status:    domain.ErrNoDocument.Error(),
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+settings, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil

	case loadedMsg:
		m.busy = false
		m.answer = nil
		if msg.err != nil {
			m.overview = ""
			m.status = "Error: " + service.UserMessage(msg.err)
		} else {
			m.overview = msg.status.Overview
			m.status = stripBold(msg.status.Message)
			if msg.status.Cached {
				m.status += " (cached)"
			}
		}
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + service.UserMessage(msg.err)
			m.answer = nil
		} else {
			m.answer = msg.answer
			m.lastQuery = msg.query
			m.status = fmt.Sprintf("Answered %q", msg.query)
			if msg.answer.Notice != "" {
				m.status += "  " + msg.answer.Notice
			}
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			return m.submit(line)
		case "pgdown", "pgup", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit dispatches one input line: a slash command or a question.
func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	cmd, args := parseCommand(line)
	switch cmd {
	case "":
		m.busy = true
		m.status = "Thinking..."
		return m, m.ask(line)
	case "quit", "exit":
		return m, tea.Quit
	case "load":
		if len(args) == 0 {
			m.status = "Usage: /load <file> [password]"
			return m, nil
		}
		password := ""
		if len(args) > 1 {
			password = args[1]
		}
		m.busy = true
		m.status = "Processing " + filepath.Base(args[0]) + "..."
		return m, m.load(args[0], password)
	case "mode":
		if len(args) == 0 {
			m.status = "Mode: " + string(m.mode)
			return m, nil
		}
		mode, err := domain.ParseMode(args[0])
		if err != nil {
			m.status = "Error: " + err.Error()
			return m, nil
		}
		m.mode = mode
		m.status = "Mode set to " + string(mode)
	case "web":
		switch {
		case len(args) == 0:
			m.forceWeb = !m.forceWeb
		case args[0] == "on":
			m.forceWeb = true
		case args[0] == "off":
			m.forceWeb = false
		default:
			m.status = "Usage: /web on|off"
			return m, nil
		}
		m.status = fmt.Sprintf("Force web search: %v", m.forceWeb)
	case "clear":
		n := m.assistant.ClearCache()
		m.answer = nil
		m.overview = ""
		m.status = fmt.Sprintf("Cache cleared (%d entries). Load a statement to continue.", n)
	case "sources":
		m.showSources = !m.showSources
		m.status = fmt.Sprintf("Show sources: %v", m.showSources)
	default:
		m.status = fmt.Sprintf("Unknown command /%s. Try /load, /mode, /web, /clear, /sources or /quit.", cmd)
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m Model) ask(query string) tea.Cmd {
	ctx, a := m.ctx, m.assistant
	q := service.Query{Text: query, Mode: m.mode, ForceWebSearch: m.forceWeb}
	return func() tea.Msg {
		ans, err := a.Ask(ctx, q)
		return answerMsg{query: query, answer: ans, err: err}
	}
}

func (m Model) load(path, password string) tea.Cmd {
	ctx, a := m.ctx, m.assistant
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return loadedMsg{err: err}
		}
		st, err := a.Load(ctx, domain.UploadedFile{Name: filepath.Base(path), Data: data}, password)
		return loadedMsg{status: st, err: err}
	}
}

// View renders the layout and the current answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Financial Statement Q&A")
	settings := fmt.Sprintf("mode=%s  web=%v", m.mode, m.forceWeb)
	if name, ok := m.assistant.Loaded(); ok {
		settings = name + "  " + settings
	}
	settings = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(settings)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + settings + "\n" + results + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderAnswer())
	m.viewport.GotoTop()
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		if m.overview != "" {
			return "Overview\n\n" + m.overview
		}
		return "No answer yet."
	}
	var b strings.Builder
	b.WriteString(m.answer.Prose)
	if m.answer.Chart != nil {
		b.WriteString("\n\n")
		b.WriteString(RenderChart(m.answer.Chart, m.viewport.Width-4))
	}
	if m.showSources && len(m.answer.Sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(sourceTitleStyle.Render("Sources"))
		for i, s := range m.answer.Sources {
			fmt.Fprintf(&b, "\n\n%d. %s\n%s", i+1, s.Location, highlightBestSentence(s.Content, m.lastQuery))
		}
	}
	return b.String()
}

// parseCommand splits "/load a.pdf pw" into ("load", ["a.pdf", "pw"]). Lines
// without a leading slash are questions and return an empty command.
func parseCommand(line string) (string, []string) {
	if !strings.HasPrefix(line, "/") {
		return "", nil
	}
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}

func stripBold(s string) string { return strings.ReplaceAll(s, "**", "") }

var (
	resultBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceTitleStyle = lipgloss.NewStyle().Underline(true)
	unicodeWordRe    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe       = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasises the sentence of text sharing the most
// words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestIdx, bestScore := 0, 0
	for i, s := range sentences {
		if score := overlap(qTokens, s); score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	if bestScore == 0 {
		return text
	}
	best := strings.TrimSpace(sentences[bestIdx])
	return strings.Replace(text, best, highlightStyle.Render(best), 1)
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func overlap(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range toTokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
