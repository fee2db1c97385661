// internal/upstream/client.go - Remote icon repository client
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"iconsmd/internal/config"
)

// ErrFetch is matched by every error returned from the client.
var ErrFetch = errors.New("upstream fetch failed")

// FetchError describes a failed request to the icon repository. StatusCode is
// zero for transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetch}
	}
	return []error{ErrFetch, e.Err}
}

// Source is what the compositor and the icon index need from the repository.
type Source interface {
	FetchIndex(ctx context.Context) ([]string, error)
	FetchIcon(ctx context.Context, name string) ([]byte, error)
}

// Client fetches the icon name index and individual SVG documents over HTTP.
type Client struct {
	baseURL      string
	indexPath    string
	iconPath     string
	userAgent    string
	maxIconBytes int64
	httpClient   *http.Client
}

// treeDocument is the index layout published by the dashboard-icons repository.
type treeDocument struct {
	SVG []string `json:"svg"`
}

// NewClient creates a client for the repository described by cfg.
func NewClient(cfg config.UpstreamConfig) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP creates a client using a caller supplied http.Client.
func NewClientWithHTTP(cfg config.UpstreamConfig, httpClient *http.Client) *Client {
	maxBytes := cfg.MaxIconBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		indexPath:    strings.TrimLeft(cfg.IndexPath, "/"),
		iconPath:     strings.TrimLeft(cfg.IconPath, "/"),
		userAgent:    cfg.UserAgent,
		maxIconBytes: maxBytes,
		httpClient:   httpClient,
	}
}

// IndexURL returns the location of the index document.
func (c *Client) IndexURL() string {
	return c.baseURL + "/" + c.indexPath
}

// IconURL returns the location of the SVG document for name.
func (c *Client) IconURL(name string) string {
	return c.baseURL + "/" + strings.ReplaceAll(c.iconPath, "{name}", url.PathEscape(name))
}

// FetchIndex downloads the index document and returns every SVG icon name
// with its .svg extension removed.
func (c *Client) FetchIndex(ctx context.Context) ([]string, error) {
	target := c.IndexURL()
	start := time.Now()

	body, err := c.get(ctx, target, 0)
	if err != nil {
		return nil, err
	}

	var tree treeDocument
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("failed to decode index: %w", err)}
	}

	names := make([]string, 0, len(tree.SVG))
	for _, filename := range tree.SVG {
		name := strings.TrimSuffix(filename, ".svg")
		if name == "" {
			continue
		}
		names = append(names, name)
	}

	logrus.WithFields(logrus.Fields{
		"url":      target,
		"icons":    len(names),
		"duration": time.Since(start),
	}).Debug("Fetched icon index")

	return names, nil
}

// FetchIcon downloads the raw SVG source for one icon.
func (c *Client) FetchIcon(ctx context.Context, name string) ([]byte, error) {
	return c.get(ctx, c.IconURL(name), c.maxIconBytes)
}

func (c *Client) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, &FetchError{URL: target, Err: fmt.Errorf("body exceeds %d bytes", limit)}
	}

	return body, nil
}
