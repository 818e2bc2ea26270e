package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/extractor"
	"docqa/internal/session"
)

const (
	// NoFileText is the banner shown when "Let's chat" is pressed without a file.
	NoFileText = "Please select the file."
	// NotPDFText is the banner shown for a file without a .pdf extension.
	NotPDFText = "Only PDF files are supported."
)

// Controller is the TUI-facing subset of the session controller.
type Controller interface {
	Submit(ctx context.Context, doc *domain.Document) (session.SubmitResult, error)
	Ask(ctx context.Context, question string) error
	Session() *session.Session
}

type uploadDoneMsg struct {
	res session.SubmitResult
	err error
}

type answerDoneMsg struct {
	err error
}

// Model is the Bubble Tea model for the upload and chat screens.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	readFile func(string) ([]byte, error)

	pathInput textinput.Model
	chatInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model

	busy    bool
	banner  string
	status  string
	summary string
	ready   bool
}

// New creates the TUI model. initialPath pre-fills the upload input.
func New(ctx context.Context, ctrl Controller, initialPath string) Model {
	pi := textinput.New()
	pi.Prompt = "File: "
	pi.Placeholder = "path/to/document.pdf"
	pi.SetValue(initialPath)
	pi.Focus()
	pi.CharLimit = 0

	ci := textinput.New()
	ci.Prompt = "> "
	ci.Placeholder = "What you need to ask"
	ci.CharLimit = 0

	vp := viewport.New(0, 0)
	// history scrolls on arrows and paging keys only
	vp.KeyMap = viewport.KeyMap{
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:       ctx,
		ctrl:      ctrl,
		readFile:  os.ReadFile,
		pathInput: pi,
		chatInput: ci,
		viewport:  vp,
		spinner:   sp,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) phase() session.Phase { return m.ctrl.Session().Phase() }

// Update handles key and window events and pipeline completions.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, hh := historyBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 3 + ih + 1 + 1 // title, summary, spacer; input; status
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-hh)
		m.refreshHistory()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case uploadDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Upload failed: " + msg.err.Error()
		}
		if msg.res.Advanced {
			m.summary = msg.res.Report.Summary
			m.pathInput.Blur()
			m.chatInput.Focus()
			m.refreshHistory()
			if msg.err == nil {
				m.status = fmt.Sprintf("Indexed %s (%d chunks).", filepath.Base(msg.res.Report.Path), msg.res.Report.Chunks)
			}
			return m, textinput.Blink
		}
		if msg.err != nil {
			m.banner = msg.err.Error()
		}
		return m, nil

	case answerDoneMsg:
		m.busy = false
		m.status = ""
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		}
		m.refreshHistory()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if msg.Type == tea.KeyEnter {
			if m.phase() == session.UploadPhase {
				return m.submit()
			}
			return m.ask()
		}
	}

	var cmd tea.Cmd
	if m.phase() == session.UploadPhase {
		m.pathInput, cmd = m.pathInput.Update(msg)
	} else {
		var vcmd tea.Cmd
		m.chatInput, cmd = m.chatInput.Update(msg)
		m.viewport, vcmd = m.viewport.Update(msg)
		cmd = tea.Batch(cmd, vcmd)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.banner = ""
	path := strings.TrimSpace(m.pathInput.Value())
	if path == "" {
		if _, err := m.ctrl.Submit(m.ctx, nil); err != nil {
			m.banner = NoFileText
		}
		return m, nil
	}
	if !extractor.IsPDF(path) {
		m.banner = NotPDFText
		return m, nil
	}
	data, err := m.readFile(path)
	if err != nil {
		m.banner = fmt.Sprintf("Cannot read %s: %v", path, err)
		return m, nil
	}
	doc := &domain.Document{Name: filepath.Base(path), Data: data}
	m.busy = true
	m.status = "Processing " + doc.Name + "..."
	ctrl, ctx := m.ctrl, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := ctrl.Submit(ctx, doc)
		return uploadDoneMsg{res: res, err: err}
	})
}

func (m Model) ask() (tea.Model, tea.Cmd) {
	q := m.chatInput.Value()
	if strings.TrimSpace(q) == "" {
		return m, nil
	}
	m.chatInput.Reset()
	m.busy = true
	m.status = "Thinking..."
	ctrl, ctx := m.ctrl, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		return answerDoneMsg{err: ctrl.Ask(ctx, q)}
	})
}

func (m *Model) refreshHistory() {
	m.viewport.SetContent(renderMessages(m.ctrl.Session().Messages(), m.viewport.Width))
	m.viewport.GotoBottom()
}

// View renders the current screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.phase() == session.UploadPhase {
		return m.uploadView()
	}
	return m.chatView()
}

func (m Model) uploadView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Upload your file.") + "\n")
	b.WriteString(mutedStyle.Render("Upload the file you need to chat with.") + "\n\n")
	b.WriteString(inputBoxStyle.Render(m.pathInput.View()) + "\n")
	b.WriteString(buttonStyle.Render("Let's chat") + mutedStyle.Render("  (Enter)") + "\n")
	if m.busy {
		b.WriteString("\n" + m.spinner.View() + " " + m.status + "\n")
	}
	if m.banner != "" {
		b.WriteString("\n" + bannerStyle.Render(m.banner) + "\n")
	}
	return b.String()
}

func (m Model) chatView() string {
	header := titleStyle.Render("Lets collect knowledge")
	summary := mutedStyle.Render(m.summary)
	history := historyBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.chatInput.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" + history + "\n" + input + "\n" + status
}

func renderMessages(msgs []domain.Message, width int) string {
	body := lipgloss.NewStyle()
	if width > 4 {
		body = body.Width(width - 2)
	}
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		label := assistantStyle.Render("Assistant")
		if msg.Role == domain.RoleHuman {
			label = humanStyle.Render("You")
		}
		parts = append(parts, label+"\n"+body.Render(msg.Text))
	}
	return strings.Join(parts, "\n\n")
}

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	bannerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	buttonStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	historyBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	humanStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
