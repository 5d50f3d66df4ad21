package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchStatus(m.config),
		fetchProgress(m.config),
		tick(m.config.RefreshInterval),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-20, 10)
		return m, nil

	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = msg.data
		}
		return m, nil

	case progressMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.lastUpdated = time.Now()

		m.state = msg.data

		// Load the summary once per finished benchmark.
		if ref := msg.data.ResultRef; msg.data.Status.Terminal() && ref != "" && ref != m.resultsRef {
			m.resultsRef = ref
			m.notice = ""
			return m, fetchResults(m.config, ref)
		}
		return m, nil

	case resultsMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.results = msg.data
			m.tableOffset = 0
		}
		return m, nil

	case cancelMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = "cancellation requested"
		}
		return m, fetchProgress(m.config)

	case tickMsg:
		m.loading = true
		return m, tea.Batch(
			fetchStatus(m.config),
			fetchProgress(m.config),
			tick(m.config.RefreshInterval),
		)
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		// Manual refresh
		m.loading = true
		return m, tea.Batch(
			fetchStatus(m.config),
			fetchProgress(m.config),
		)

	case "c":
		if m.state != nil && !m.state.Status.Terminal() && m.state.ID != "" {
			return m, requestCancel(m.config)
		}
		return m, nil

	case "up", "k":
		if m.tableOffset > 0 {
			m.tableOffset--
		}
		return m, nil

	case "down", "j":
		if m.tableOffset < len(m.rows())-1 {
			m.tableOffset++
		}
		return m, nil
	}

	return m, nil
}
