package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend-radar/internal/source"
)

const rss = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Dev Blog</title>
<item><title>WebAssembly components land</title><link>https://dev.example.com/wasm</link>
<description>&lt;p&gt;The &lt;b&gt;component model&lt;/b&gt; is here&lt;/p&gt;</description>
<category>Runtime</category><pubDate>Sat, 28 Feb 2026 00:00:00 GMT</pubDate></item>
<item><title>Quarterly results</title><link>https://dev.example.com/q</link><description>money</description></item>
</channel></rss>`

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rss))
	}))
	defer srv.Close()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &Fetcher{
		URLs:     []string{srv.URL + "/broken", srv.URL + "/feed"},
		Keywords: source.Keywords{"webassembly"},
		Now:      func() time.Time { return now },
	}
	cands, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	c := cands[0]
	assert.Equal(t, "WebAssembly components land", c.Title)
	assert.Equal(t, "The component model is here", c.Description)
	assert.Equal(t, "feeds:Dev Blog", c.SourceName)
	assert.Equal(t, "Runtime", c.Category)
	assert.InDelta(t, 90.0, *c.Metrics.GrowthRate, 0.001)
}

func TestFetcher_AllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := (&Fetcher{URLs: []string{srv.URL + "/a", srv.URL + "/b"}}).Fetch(context.Background())
	assert.ErrorContains(t, err, "all 2 feeds failed")
}

func TestFetcher_NoFeeds(t *testing.T) {
	cands, err := (&Fetcher{}).Fetch(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, cands)
}

func TestRecency(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 100.0, Recency(now.Add(time.Hour), now))
	assert.InDelta(t, 70.0, Recency(now.Add(-72*time.Hour), now), 0.001)
}
