package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CloudflareClient calls the Cloudflare Browser Rendering markdown endpoint.
// See: https://developers.cloudflare.com/browser-rendering/rest-api/
type CloudflareClient struct {
	baseURL string
	token   string
	http    *http.Client
}

type markdownRequest struct {
	URL                  string   `json:"url"`
	RejectRequestPattern []string `json:"rejectRequestPattern,omitempty"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// CloudflareEndpoint returns the markdown endpoint for an account.
func CloudflareEndpoint(accountID string) string {
	return fmt.Sprintf("https://api.cloudflare.com/client/v4/accounts/%s/browser-rendering/markdown", strings.TrimSpace(accountID))
}

// NewCloudflare creates a client for an account ID.
func NewCloudflare(accountID, token string, timeout time.Duration) *CloudflareClient {
	return NewCloudflareWithEndpoint(CloudflareEndpoint(accountID), token, timeout)
}

// NewCloudflareWithEndpoint creates a client against an explicit endpoint.
func NewCloudflareWithEndpoint(endpoint, token string, timeout time.Duration) *CloudflareClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &CloudflareClient{
		baseURL: strings.TrimRight(endpoint, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *CloudflareClient) Name() string { return "cloudflare" }

// Scrape renders u through the proxy and returns its markdown.
func (c *CloudflareClient) Scrape(ctx context.Context, u string) (Page, error) {
	if c == nil {
		return Page{}, errors.New("nil cloudflare client")
	}
	if err := validURL(u); err != nil {
		return Page{}, err
	}
	body, _ := json.Marshal(markdownRequest{
		URL:                  u,
		RejectRequestPattern: []string{"/^.*\\.(css)/"},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Page{}, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	var envelope scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return Page{}, fmt.Errorf("cloudflare: decode: %w", err)
	}
	if !envelope.Success {
		msg := "unsuccessful response"
		if len(envelope.Errors) > 0 {
			msg = envelope.Errors[0].Message
		}
		return Page{}, fmt.Errorf("cloudflare: %s", msg)
	}
	content := strings.TrimSpace(envelope.Result)
	if content == "" {
		return Page{}, ErrEmptyContent
	}
	return Page{URL: u, Title: MarkdownTitle(content), Content: content}, nil
}

// MarkdownTitle returns the heading with the fewest '#' marks, earliest first.
func MarkdownTitle(md string) string {
	best, bestLevel := "", 0
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		level := len(line) - len(strings.TrimLeft(line, "#"))
		if best == "" || level < bestLevel {
			best, bestLevel = strings.TrimSpace(strings.TrimLeft(line, "#")), level
		}
	}
	return best
}

func validURL(u string) error {
	parsed, err := url.ParseRequestURI(u)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid url: unsupported scheme %q", parsed.Scheme)
	}
	return nil
}
