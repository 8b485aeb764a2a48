package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type warmupDoneMsg struct {
	err error
}

type warmupSpinnerModel struct {
	spinner spinner.Model
	label   string
	warmup  tea.Cmd
	err     error
	done    bool
}

func newWarmupSpinnerModel(label string, warmup tea.Cmd) warmupSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return warmupSpinnerModel{
		spinner: s,
		label:   label,
		warmup:  warmup,
	}
}

func (m warmupSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.warmup)
}

func (m warmupSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case warmupDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m warmupSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

func runWarmupSpinner(ctx context.Context, output io.Writer, warmup func(context.Context) error) error {
	warmupCmd := func() tea.Msg {
		return warmupDoneMsg{err: warmup(ctx)}
	}

	p := tea.NewProgram(
		newWarmupSpinnerModel("Bringing up the pool...", warmupCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(warmupSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}
