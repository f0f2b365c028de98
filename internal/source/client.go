package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	UserAgent = "skate-feed/1.0 (github.com/pfrederiksen/skate-feed)"
	Timeout   = 30 * time.Second

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 20 << 20
)

// Client performs the HTTP requests of the adapters. The zero value is not
// usable; call NewClient.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient returns a client with the default user agent and timeout.
func NewClient() *Client {
	return NewClientWith(&http.Client{Timeout: Timeout}, UserAgent)
}

// NewClientWith returns a client that sends requests through hc.
func NewClientWith(hc *http.Client, userAgent string) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: Timeout}
	}
	if userAgent == "" {
		userAgent = UserAgent
	}
	return &Client{http: hc, userAgent: userAgent}
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.do(req)
}

// GetDocument fetches url and parses the response as HTML.
func (c *Client) GetDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// PostJSON posts payload encoded as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")

	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
