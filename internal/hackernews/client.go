package hackernews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trend-radar/internal/source"
	"trend-radar/internal/textclean"
)

// DefaultBaseAPI is the public firebase endpoint.
const DefaultBaseAPI = "https://hacker-news.firebaseio.com/v0"

// Client is a minimal Hacker News API client.
// Docs: https://github.com/HackerNews/API
type Client struct {
	baseAPI string
	client  *http.Client
}

// NewClient creates a new Hacker News client. If baseAPI is empty it
// defaults to the v0 endpoint.
func NewClient(baseAPI string) *Client {
	if strings.TrimSpace(baseAPI) == "" {
		baseAPI = DefaultBaseAPI
	}
	return &Client{
		baseAPI: strings.TrimRight(baseAPI, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Story is the subset of an HN item used for trend detection.
type Story struct {
	ID        int
	Title     string
	URL       string
	Text      string
	Points    int
	Comments  int
	CreatedAt time.Time
}

type hnItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Time        int64  `json:"time"`
	Kids        []int  `json:"kids"`
	Descendants int    `json:"descendants"`
	Score       int    `json:"score"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Stories returns up to limit stories from a list such as top, new, best or show.
func (c *Client) Stories(ctx context.Context, list string, limit int) ([]Story, error) {
	name := listName(list)
	ids, err := c.fetchIDs(ctx, name)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	slog.Debug("hackernews: fetching items", "list", name, "count", len(ids))
	return c.itemsByIDs(ctx, ids), nil
}

// Item fetches a single HN item by ID.
func (c *Client) Item(ctx context.Context, id int) (Story, error) {
	endpoint := fmt.Sprintf("%s/item/%d.json", c.baseAPI, id)
	var it hnItem
	if err := c.getJSON(ctx, endpoint, &it); err != nil {
		return Story{}, err
	}
	if it.Dead || it.Deleted || it.Type != "story" {
		return Story{}, nil
	}
	return convertItem(it), nil
}

func listName(list string) string {
	switch strings.ToLower(strings.TrimSpace(list)) {
	case "new", "newstories":
		return "newstories"
	case "best", "beststories":
		return "beststories"
	case "ask", "askstories":
		return "askstories"
	case "show", "showstories":
		return "showstories"
	default:
		return "topstories"
	}
}

func (c *Client) fetchIDs(ctx context.Context, list string) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%s.json", c.baseAPI, url.PathEscape(list)), &ids); err != nil {
		return nil, fmt.Errorf("hackernews: %s: %w", list, err)
	}
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &source.StatusError{Code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// itemsByIDs resolves IDs concurrently, preserving order and skipping failures.
func (c *Client) itemsByIDs(ctx context.Context, ids []int) []Story {
	if len(ids) == 0 {
		return nil
	}
	const maxWorkers = 8
	type result struct {
		idx   int
		story Story
		err   error
	}
	out := make([]Story, len(ids))
	sem := make(chan struct{}, maxWorkers)
	done := make(chan result, len(ids))
	for i, id := range ids {
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			ictx, cancel := context.WithTimeout(ctx, 8*time.Second)
			defer cancel()
			s, err := c.Item(ictx, id)
			done <- result{idx: i, story: s, err: err}
		}()
	}
	for range ids {
		r := <-done
		if r.err != nil {
			slog.Debug("hackernews: item failed", "idx", r.idx, "err", r.err)
			continue
		}
		out[r.idx] = r.story
	}
	stories := make([]Story, 0, len(ids))
	for _, s := range out {
		if s.ID != 0 {
			stories = append(stories, s)
		}
	}
	return stories
}

func convertItem(h hnItem) Story {
	u := strings.TrimSpace(h.URL)
	if u == "" {
		u = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", h.ID)
	}
	comments := h.Descendants
	if len(h.Kids) > comments {
		comments = len(h.Kids)
	}
	return Story{
		ID:        h.ID,
		Title:     strings.TrimSpace(h.Title),
		URL:       u,
		Text:      textclean.StripTags(h.Text),
		Points:    h.Score,
		Comments:  comments,
		CreatedAt: time.Unix(h.Time, 0).UTC(),
	}
}
