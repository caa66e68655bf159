package v2ex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trend-radar/internal/source"
)

// DefaultBaseURL is the public V2EX site.
const DefaultBaseURL = "https://www.v2ex.com"

type Client struct {
	baseURL string
	client  *http.Client
	token   string
}

func NewClient(baseURL, token string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		token:   token,
	}
}

// Topic represents a subset of V2EX topic fields used for trend detection.
type Topic struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Replies int    `json:"replies"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Node    struct {
		Name string `json:"name"`
	} `json:"node"`
	Created int64 `json:"created"`
}

// CreatedAt converts the unix timestamp of a topic.
func (t Topic) CreatedAt() time.Time { return time.Unix(t.Created, 0).UTC() }

// TopicsByNode fetches topics for a given node.
// API: GET /api/topics/show.json?node_name={node}
func (c *Client) TopicsByNode(ctx context.Context, node string) ([]Topic, error) {
	endpoint := fmt.Sprintf("%s/api/topics/show.json", c.baseURL)
	q := url.Values{"node_name": {node}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("v2ex: node %s: %w", node, &source.StatusError{Code: resp.StatusCode})
	}
	var raw []Topic
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("v2ex: node %s: decode: %w", node, err)
	}
	for i := range raw {
		if raw[i].URL == "" {
			raw[i].URL = fmt.Sprintf("%s/t/%d", c.baseURL, raw[i].ID)
		}
		raw[i].Title = strings.TrimSpace(raw[i].Title)
	}
	return raw, nil
}
