package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/server"
)

// Messages for tea.Cmd
type statusMsg struct {
	data *server.StatusResponse
	err  error
}

type progressMsg struct {
	data *progress.State
	err  error
}

type resultsMsg struct {
	data *server.RunResponse
	err  error
}

type cancelMsg struct {
	err error
}

type tickMsg time.Time

// API client for TUI
type apiClient struct {
	baseURL  string
	client   *http.Client
	user     string
	password string
}

func newAPIClient(cfg Config) *apiClient {
	return &apiClient{
		baseURL: cfg.ServerURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		user:     cfg.User,
		password: cfg.Password,
	}
}

func (c *apiClient) request(method, path string) ([]byte, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *apiClient) getJSON(path string, out any) error {
	data, err := c.request(http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// fetchStatus fetches Ollama availability as tea.Cmd
func fetchStatus(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var status server.StatusResponse
		if err := newAPIClient(cfg).getJSON("/api/status", &status); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{data: &status}
	}
}

// fetchProgress polls the progress snapshot as tea.Cmd
func fetchProgress(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var st progress.State
		if err := newAPIClient(cfg).getJSON("/api/progress/snapshot", &st); err != nil {
			return progressMsg{err: err}
		}
		return progressMsg{data: &st}
	}
}

// fetchResults loads the statistics of a finished run.
func fetchResults(cfg Config, id string) tea.Cmd {
	return func() tea.Msg {
		var run server.RunResponse
		if err := newAPIClient(cfg).getJSON("/api/history/"+id, &run); err != nil {
			return resultsMsg{err: err}
		}
		return resultsMsg{data: &run}
	}
}

func requestCancel(cfg Config) tea.Cmd {
	return func() tea.Msg {
		_, err := newAPIClient(cfg).request(http.MethodPost, "/api/benchmark/cancel")
		return cancelMsg{err: err}
	}
}

// tick creates a periodic tick command
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
