package tui

import (
	"time"

	progressbar "github.com/charmbracelet/bubbles/progress"

	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/server"
)

// Config holds TUI configuration
type Config struct {
	ServerURL       string
	RefreshInterval time.Duration
	User            string
	Password        string
}

// Model represents the TUI state
type Model struct {
	config Config

	// Data from API
	status  *server.StatusResponse
	state   *progress.State
	results *server.RunResponse

	// resultsRef is the run whose results were last requested.
	resultsRef string

	bar progressbar.Model

	// UI state
	width       int
	height      int
	loading     bool
	err         error
	notice      string
	lastUpdated time.Time

	// Table scroll position
	tableOffset int
}

// NewModel creates a new TUI model
func NewModel(cfg Config) Model {
	return Model{
		config:  cfg,
		loading: true,
		bar:     progressbar.New(progressbar.WithDefaultGradient()),
	}
}
