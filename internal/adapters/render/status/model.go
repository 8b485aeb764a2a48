package status

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/rotorpool/internal/domain"
	"github.com/bnema/rotorpool/internal/scheduler"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	pool     scheduler.PoolStatus
	accounts []domain.Account
	opts     RenderOptions
	styles   styles
	output   string
}

func newModel(pool scheduler.PoolStatus, accounts []domain.Account, opts RenderOptions) model {
	return model{
		pool:     pool,
		accounts: accounts,
		opts:     opts,
		styles:   newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.pool, m.accounts, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(pool scheduler.PoolStatus, accounts []domain.Account, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(pool, accounts, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
