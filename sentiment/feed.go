package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aouyang1/go-pricecast/feature"
	"github.com/mmcdole/gofeed"
)

// DefaultFeeds are crypto news RSS feeds
var DefaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss",
	"https://cryptoslate.com/feed/",
}

const DefaultTimeout = 10 * time.Second

// Headline is a single news item
type Headline struct {
	Title     string
	Published time.Time
	Source    string
}

// Client fetches headlines from RSS feeds. Each feed is tried once; failures are logged and the
// feed is skipped.
type Client struct {
	feeds  []string
	parser *gofeed.Parser
}

// NewClient uses DefaultFeeds when feeds is empty and DefaultTimeout when timeout is 0
func NewClient(feeds []string, timeout time.Duration) *Client {
	if len(feeds) == 0 {
		feeds = DefaultFeeds
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &Client{feeds: feeds, parser: parser}
}

// FetchFeed returns the dated headlines of one feed
func (c *Client) FetchFeed(ctx context.Context, url string) ([]Headline, error) {
	feed, err := c.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch feed %s, %w", url, err)
	}
	res := make([]Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil || item.Title == "" {
			continue
		}
		res = append(res, Headline{Title: item.Title, Published: published.UTC(), Source: url})
	}
	return res, nil
}

// Fetch gathers the headlines of every configured feed
func (c *Client) Fetch(ctx context.Context) []Headline {
	var res []Headline
	for _, url := range c.feeds {
		headlines, err := c.FetchFeed(ctx, url)
		if err != nil {
			slog.Warn("skipping news feed", "url", url, "error", err)
			continue
		}
		slog.Info("fetched news feed", "url", url, "headlines", len(headlines))
		res = append(res, headlines...)
	}
	return res
}

// DailyMean averages the headline scores per UTC day
func DailyMean(headlines []Headline, s Polarity) map[time.Time]float64 {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, h := range headlines {
		day := feature.Day(h.Published)
		sums[day] += s.Score(h.Title)
		counts[day]++
	}
	for day, cnt := range counts {
		sums[day] /= float64(cnt)
	}
	return sums
}
