package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTP fetches file bytes from a file server by ID: GET <base>?fileID=<id>.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP returns an HTTP provider. A nil client gets a 30s timeout.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("content: file server url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("content: parse file server url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTP{base: u, client: client}, nil
}

func (h *HTTP) Content(ctx context.Context, fileID int64) ([]byte, error) {
	u := *h.base
	q := u.Query()
	q.Set("fileID", strconv.FormatInt(fileID, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("file %d: file server returned %s", fileID, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("file %d: read body: %w", fileID, err)
	}
	return b, nil
}
