package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/haskel/benchfox/internal/server"
)

// startOperation posts a benchmark or pull request. A busy server is
// reported with exitBusy so scripts can retry later.
func startOperation(client *Client, path string, body any) (*server.StartResponse, error) {
	data, status, err := client.Post(path, body)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusConflict:
		return nil, &ExitError{Code: exitBusy, Err: errors.New("another operation is already running")}
	default:
		return nil, apiError(status, data)
	}

	var resp server.StartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &resp, nil
}
