package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/news2/shell/internal/shell/bridge"
)

// Run subscribes to host events and drives the terminal UI until the user
// quits or ctx ends.
func Run(ctx context.Context, client *bridge.Client, cfg Config) error {
	events, err := client.Subscribe(ctx)
	if err != nil {
		cfg.Logger.Warn().Err(err).Msg("host menu events unavailable")
		events = nil
	}

	m := NewModel(ctx, client, events, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}
