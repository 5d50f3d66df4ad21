package tui

import (
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Run checks that the server answers, then starts the dashboard in the
// alternate screen.
func Run(cfg Config) error {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Second
	}

	if _, err := newAPIClient(cfg).request(http.MethodGet, "/health"); err != nil {
		return fmt.Errorf("benchfox server not reachable at %s: %w", cfg.ServerURL, err)
	}

	p := tea.NewProgram(NewModel(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
