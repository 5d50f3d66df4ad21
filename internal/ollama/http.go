package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds HTTP client configuration.
type Config struct {
	BaseURL string
	// RequestTimeout bounds generate, unload and list calls. Pull has no
	// overall deadline; it is bounded by its context.
	RequestTimeout time.Duration
	// ProbeTimeout bounds availability checks.
	ProbeTimeout time.Duration
	// StreamGenerate requests a streamed response so the time to the first
	// token can be measured.
	StreamGenerate bool
}

// DefaultConfig returns the defaults used when fields are left empty.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:11434",
		RequestTimeout: 10 * time.Minute,
		ProbeTimeout:   5 * time.Second,
		StreamGenerate: true,
	}
}

// HTTPClient talks to an Ollama server.
type HTTPClient struct {
	config     Config
	httpClient *http.Client
	now        func() time.Time
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(cfg Config) *HTTPClient {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}

	return &HTTPClient{
		config: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: cfg.RequestTimeout,
			},
		},
		now: time.Now,
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.config.BaseURL
}

func (c *HTTPClient) CheckAvailability(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, "check availability", http.MethodGet, "/api/tags", nil)
	if err != nil {
		return false, err
	}
	drainAndClose(resp.Body)

	return true, nil
}

type tagsResponse struct {
	Models []struct {
		Name       string    `json:"name"`
		Model      string    `json:"model"`
		Size       int64     `json:"size"`
		Digest     string    `json:"digest"`
		ModifiedAt time.Time `json:"modified_at"`
	} `json:"models"`
}

func (c *HTTPClient) ListModels(ctx context.Context) ([]Model, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var tags tagsResponse
	if err := c.getJSON(ctx, "list models", "/api/tags", &tags); err != nil {
		return nil, err
	}

	models := make([]Model, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		models = append(models, Model{
			Name:       name,
			Downloaded: true,
			SizeBytes:  m.Size,
			Digest:     m.Digest,
			ModifiedAt: m.ModifiedAt,
		})
	}

	return models, nil
}

type pullLine struct {
	PullProgress
	Error string `json:"error"`
}

func (c *HTTPClient) Pull(ctx context.Context, model string, events chan<- PullProgress) error {
	defer close(events)

	const op = "pull"

	resp, err := c.do(ctx, op, http.MethodPost, "/api/pull", map[string]any{
		"model":  model,
		"stream": true,
	})
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	succeeded := false
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var pl pullLine
		if err := json.Unmarshal(line, &pl); err != nil {
			return protocolError(op, "failed to decode pull progress", err)
		}
		if pl.Error != "" {
			return serverError(op, pl.Error)
		}

		select {
		case events <- pl.PullProgress:
		case <-ctx.Done():
			return ctx.Err()
		}

		if pl.Status == "success" {
			succeeded = true
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportError(op, err)
	}

	if !succeeded {
		return protocolError(op, "pull stream ended without success", nil)
	}

	return nil
}

type generateChunk struct {
	Response           string `json:"response"`
	Done               bool   `json:"done"`
	Error              string `json:"error"`
	TotalDuration      int64  `json:"total_duration"`
	LoadDuration       int64  `json:"load_duration"`
	PromptEvalCount    int    `json:"prompt_eval_count"`
	PromptEvalDuration int64  `json:"prompt_eval_duration"`
	EvalCount          int    `json:"eval_count"`
	EvalDuration       int64  `json:"eval_duration"`
}

func (c *HTTPClient) Generate(ctx context.Context, model, prompt string) (*GenerateResult, error) {
	const op = "generate"

	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	start := c.now()
	resp, err := c.do(ctx, op, http.MethodPost, "/api/generate", map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": c.config.StreamGenerate,
	})
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if !c.config.StreamGenerate {
		var chunk generateChunk
		if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
			return nil, c.readError(ctx, op, "failed to decode response", err)
		}
		if chunk.Error != "" {
			return nil, serverError(op, chunk.Error)
		}
		return chunk.result(chunk.Response, 0), nil
	}

	var (
		text       strings.Builder
		firstToken time.Duration
	)
	dec := json.NewDecoder(resp.Body)
	for {
		var chunk generateChunk
		if err := dec.Decode(&chunk); err != nil {
			if err == io.EOF {
				return nil, protocolError(op, "stream ended before done", nil)
			}
			return nil, c.readError(ctx, op, "failed to decode stream chunk", err)
		}
		if chunk.Error != "" {
			return nil, serverError(op, chunk.Error)
		}

		if firstToken == 0 && chunk.Response != "" {
			firstToken = c.now().Sub(start)
		}
		text.WriteString(chunk.Response)

		if chunk.Done {
			return chunk.result(text.String(), firstToken), nil
		}
	}
}

func (g generateChunk) result(text string, firstToken time.Duration) *GenerateResult {
	return &GenerateResult{
		Response:           text,
		TotalDuration:      time.Duration(g.TotalDuration),
		LoadDuration:       time.Duration(g.LoadDuration),
		PromptEvalCount:    g.PromptEvalCount,
		PromptEvalDuration: time.Duration(g.PromptEvalDuration),
		EvalCount:          g.EvalCount,
		EvalDuration:       time.Duration(g.EvalDuration),
		FirstToken:         firstToken,
	}
}

func (c *HTTPClient) Unload(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	resp, err := c.do(ctx, "unload", http.MethodPost, "/api/generate", map[string]any{
		"model":      model,
		"keep_alive": 0,
	})
	if err != nil {
		return err
	}
	drainAndClose(resp.Body)

	return nil
}

type psResponse struct {
	Models []struct {
		Name     string `json:"name"`
		Model    string `json:"model"`
		Size     int64  `json:"size"`
		SizeVRAM int64  `json:"size_vram"`
	} `json:"models"`
}

func (c *HTTPClient) LoadedModels(ctx context.Context) ([]LoadedModel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var ps psResponse
	if err := c.getJSON(ctx, "loaded models", "/api/ps", &ps); err != nil {
		return nil, err
	}

	loaded := make([]LoadedModel, 0, len(ps.Models))
	for _, m := range ps.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		loaded = append(loaded, LoadedModel{
			Name:          name,
			SizeBytes:     m.Size,
			SizeVRAMBytes: m.SizeVRAM,
		})
	}

	return loaded, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.readError(ctx, op, "failed to decode response", err)
	}

	return nil
}

// do sends a request and returns the response when the status is 2xx.
// Non-2xx responses are converted to a *ClientError and their body closed.
func (c *HTTPClient) do(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, protocolError(op, "failed to marshal request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Kind: KindUnavailable, Op: op, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer drainAndClose(resp.Body)
		return nil, statusError(op, resp)
	}

	return resp, nil
}

func (c *HTTPClient) readError(ctx context.Context, op, message string, err error) error {
	if ctx.Err() != nil {
		return transportError(op, ctx.Err())
	}
	return protocolError(op, message, err)
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &ClientError{Kind: KindNotFound, Op: op, Message: msg}
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway:
		return &ClientError{Kind: KindUnavailable, Op: op, Message: msg}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return &ClientError{Kind: KindTimeout, Op: op, Message: msg}
	default:
		return &ClientError{Kind: KindProtocol, Op: op, Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, msg)}
	}
}

// serverError classifies an error reported inside a response body.
func serverError(op, msg string) error {
	if strings.Contains(strings.ToLower(msg), "not found") {
		return &ClientError{Kind: KindNotFound, Op: op, Message: msg}
	}
	return &ClientError{Kind: KindProtocol, Op: op, Message: msg}
}

func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, r)
	_ = r.Close()
}
