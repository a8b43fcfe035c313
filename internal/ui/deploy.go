package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/solana-launchpad/internal/deploy"
	"github.com/rovshanmuradov/solana-launchpad/internal/ui/style"
)

// KeyMap defines the deployment screen's keyboard shortcuts.
type KeyMap struct {
	Quit  key.Binding
	Retry key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
	}
}

// step is one completed or in-flight line of the progress log.
type step struct {
	phase   deploy.Phase
	message string
}

// DeployModel drives one deployment and renders its progress.
type DeployModel struct {
	orch   *deploy.Orchestrator
	params deploy.TokenParams
	keyMap KeyMap

	spinner     spinner.Model
	transitions chan PhaseMsg

	steps  []step
	result *deploy.Result
	err    *deploy.DeployError
}

func NewDeployModel(orch *deploy.Orchestrator, params deploy.TokenParams) *DeployModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(style.Cyan)

	m := &DeployModel{
		orch:        orch,
		params:      params,
		keyMap:      DefaultKeyMap(),
		spinner:     sp,
		transitions: make(chan PhaseMsg, 16),
	}
	orch.OnTransition(func(phase deploy.Phase, message string) {
		select {
		case m.transitions <- PhaseMsg{Phase: phase, Message: message}:
		default:
		}
	})
	return m
}

func (m *DeployModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.deployCmd(), m.waitTransition())
}

// deployCmd runs the deployment off the UI loop.
func (m *DeployModel) deployCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.orch.Deploy(context.Background(), m.params)
		if err != nil {
			return DeployFailedMsg{Err: deploy.Classify(err)}
		}
		return DeployDoneMsg{Result: result}
	}
}

func (m *DeployModel) retryCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.orch.Retry(context.Background())
		if err != nil {
			return DeployFailedMsg{Err: deploy.Classify(err)}
		}
		return DeployDoneMsg{Result: result}
	}
}

// waitTransition forwards the next orchestrator transition to the UI loop.
func (m *DeployModel) waitTransition() tea.Cmd {
	return func() tea.Msg {
		return <-m.transitions
	}
}

func (m *DeployModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keyMap.Retry):
			if m.err != nil && m.err.Retryable {
				m.steps = nil
				m.err = nil
				m.result = nil
				return m, tea.Batch(m.spinner.Tick, m.retryCmd(), m.waitTransition())
			}
		}
		return m, nil

	case PhaseMsg:
		if !msg.Phase.Terminal() && msg.Phase != deploy.PhaseIdle {
			m.steps = append(m.steps, step{phase: msg.Phase, message: msg.Message})
		}
		return m, m.waitTransition()

	case DeployDoneMsg:
		m.result = msg.Result
		return m, nil

	case DeployFailedMsg:
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *DeployModel) View() string {
	var b strings.Builder
	b.WriteString(style.Title.Render(fmt.Sprintf("Deploying %s (%s)", m.params.Name, m.params.Symbol)))
	b.WriteString("\n")

	for i, s := range m.steps {
		current := i == len(m.steps)-1 && m.result == nil && m.err == nil
		switch {
		case current:
			b.WriteString(style.Pending.Render(fmt.Sprintf("%s %s", m.spinner.View(), s.message)))
		default:
			b.WriteString(style.Success.Render("  ✓ ") + s.message)
		}
		b.WriteString("\n")
	}

	switch {
	case m.result != nil:
		b.WriteString(style.Success.Render("  ✓ Token deployed") + "\n\n")
		summary := strings.Join([]string{
			"Address:   " + m.result.TokenAddress,
			"Signature: " + m.result.Signature,
			fmt.Sprintf("Fee:       %.9f SOL", float64(m.result.Fee)/1e9),
			metadataLine(m.result.MetadataURI),
		}, "\n")
		b.WriteString(style.Box.Render(summary) + "\n")
		b.WriteString(style.Hint.Render("q quit"))

	case m.err != nil:
		b.WriteString(style.Error.Render("  ✗ "+m.err.Message) + "\n")
		if m.err.Suggestion != "" {
			b.WriteString(style.Muted.Render("    "+m.err.Suggestion) + "\n")
		}
		if m.err.Retryable {
			b.WriteString(style.Hint.Render("r retry · q quit"))
		} else {
			b.WriteString(style.Hint.Render("q quit"))
		}

	default:
		b.WriteString(style.Hint.Render("q cancel"))
	}

	b.WriteString("\n")
	return b.String()
}

func metadataLine(uri string) string {
	if uri == "" {
		return "Metadata:  none"
	}
	return "Metadata:  " + uri
}
