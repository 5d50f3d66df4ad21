package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// errStopStream ends Stream without an error.
var errStopStream = errors.New("stop stream")

// Client is an HTTP client for the benchfox API
type Client struct {
	baseURL  string
	client   *http.Client
	stream   *http.Client
	user     string
	password string
}

// NewClient creates a new API client
func NewClient() *Client {
	return &Client{
		baseURL: GetServerURL(),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Event streams stay open for the whole operation.
		stream:   &http.Client{},
		user:     user,
		password: password,
	}
}

// Get performs a GET request
func (c *Client) Get(path string) ([]byte, int, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}

	return c.do(req)
}

// Post performs a POST request with JSON body
func (c *Client) Post(path string, body any) ([]byte, int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// GetJSON performs a GET request and decodes a 200 response into out.
func (c *Client) GetJSON(path string, out any) error {
	data, status, err := c.Get(path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return data, resp.StatusCode, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}
}

// Stream follows a server-sent event stream at path, calling fn for every
// data event. Heartbeats are skipped. It returns when the server closes
// the stream, ctx is done, or fn returns errStopStream.
func (c *Client) Stream(ctx context.Context, path string, fn func(data []byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, data)
	}

	err = readEvents(resp.Body, func(event string, data []byte) error {
		if event != "" && event != "message" {
			return nil
		}
		return fn(data)
	})
	if errors.Is(err, errStopStream) || ctx.Err() != nil {
		return nil
	}
	return err
}

// readEvents parses a text/event-stream body. Multi-line data fields are
// joined with newlines.
func readEvents(r io.Reader, fn func(event string, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data []string

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if len(data) > 0 {
				if err := fn(event, []byte(strings.Join(data, "\n"))); err != nil {
					return err
				}
			}
			event, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}

	return scanner.Err()
}

// apiError turns an error response into an error, preferring the server's
// message.
func apiError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return fmt.Errorf("server returned status %d: %s", status, body.Error)
	}
	return fmt.Errorf("server returned status %d: %s", status, strings.TrimSpace(string(data)))
}

// Health checks if server is running
func (c *Client) Health() error {
	_, status, err := c.Get("/health")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("server returned status %d", status)
	}
	return nil
}
