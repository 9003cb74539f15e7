package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"github.com/youhedge/hedgetv/internal/shared"
	"github.com/youhedge/hedgetv/internal/ui"
)

// TUI launches the interactive subscription browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.session == nil || r.service == nil || r.cache == nil {
		return fmt.Errorf("%w: client not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/hedgetv-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.session, r.service, r.cache)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
