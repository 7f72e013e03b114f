// Package scraper provides a direct client for the Apify scraping API,
// fetching recent social posts for trend analysis.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
)

// Actor IDs of the scrapers invoked through the Apify run-sync endpoint.
const (
	twitterActor   = "apidojo~twitter-scraper-lite"
	tiktokActor    = "clockworks~tiktok-scraper"
	instagramActor = "shu8hvrXbJbY3Eb9W"
)

// Post is one normalized social media post, platform differences flattened.
type Post struct {
	Platform        string  `json:"platform"`
	ID              string  `json:"id"`
	Text            string  `json:"text"`
	Author          string  `json:"author"`
	Likes           int     `json:"likes"`
	Shares          int     `json:"shares"`
	Comments        int     `json:"comments"`
	Views           int     `json:"views"`
	CreatedAt       string  `json:"created_at"`
	URL             string  `json:"url"`
	EngagementScore float64 `json:"engagement_score"`
}

// Client calls Apify actors directly over HTTP. A client without a token
// returns empty results rather than failing, so the content pipeline can run
// offline.
type Client struct {
	cfg      config.ScraperConfig
	apiToken string
	http     *http.Client
	logger   *logx.Logger
}

// NewClient builds a scraper client. The Apify token comes from the secrets
// store or environment; absence is not an error.
func NewClient(cfg config.ScraperConfig) *Client {
	token, _ := config.GetSecret("APIFY_API_TOKEN")
	return &Client{
		cfg:      cfg,
		apiToken: token,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logx.NewLogger("scraper"),
	}
}

// HasToken reports whether the client can reach the scraping API.
func (c *Client) HasToken() bool {
	return c.apiToken != ""
}

// ScrapeTwitter fetches recent tweets matching the query.
func (c *Client) ScrapeTwitter(ctx context.Context, query string, maxResults int) ([]Post, error) {
	if !c.HasToken() {
		return nil, nil
	}
	input := map[string]any{
		"searchTerms":        []string{query},
		"maxTweets":          maxResults,
		"addUserInfo":        true,
		"includeSearchTerms": false,
	}
	raw, err := c.runActor(ctx, twitterActor, input)
	if err != nil {
		return nil, err
	}
	return processTwitter(raw), nil
}

// ScrapeTikTok fetches recent videos for the hashtag.
func (c *Client) ScrapeTikTok(ctx context.Context, hashtag string, maxResults int) ([]Post, error) {
	if !c.HasToken() {
		return nil, nil
	}
	input := map[string]any{
		"hashtags":       []string{strings.TrimPrefix(hashtag, "#")},
		"resultsPerPage": maxResults,
	}
	raw, err := c.runActor(ctx, tiktokActor, input)
	if err != nil {
		return nil, err
	}
	return processTikTok(raw), nil
}

// ScrapeInstagram fetches recent posts for the hashtag.
func (c *Client) ScrapeInstagram(ctx context.Context, hashtag string, maxResults int) ([]Post, error) {
	if !c.HasToken() {
		return nil, nil
	}
	input := map[string]any{
		"hashtags":     []string{strings.TrimPrefix(hashtag, "#")},
		"resultsLimit": maxResults,
	}
	raw, err := c.runActor(ctx, instagramActor, input)
	if err != nil {
		return nil, err
	}
	return processInstagram(raw), nil
}

// ScrapeMultiPlatform fans out to every requested platform concurrently and
// collects per-platform results. A failing platform yields an empty slice,
// never an error; partial data beats no data for trend analysis.
func (c *Client) ScrapeMultiPlatform(ctx context.Context, query string, platforms []string, maxResults int) map[string][]Post {
	if len(platforms) == 0 {
		platforms = c.cfg.Platforms
	}

	results := make(map[string][]Post, len(platforms))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, platform := range platforms {
		platform := platform
		wg.Add(1)
		go func() {
			defer wg.Done()
			var posts []Post
			var err error
			switch platform {
			case "twitter":
				posts, err = c.ScrapeTwitter(ctx, query, maxResults)
			case "tiktok":
				posts, err = c.ScrapeTikTok(ctx, "#"+query, maxResults)
			case "instagram":
				posts, err = c.ScrapeInstagram(ctx, "#"+query, maxResults)
			default:
				c.logger.Warn("unknown platform %q skipped", platform)
				return
			}
			if err != nil {
				c.logger.Warn("%s scrape failed: %v", platform, err)
				posts = nil
			}
			mu.Lock()
			results[platform] = posts
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// runActor POSTs the input to the actor's run-sync-get-dataset-items
// endpoint and decodes the dataset items.
func (c *Client) runActor(ctx context.Context, actorID string, input map[string]any) ([]map[string]any, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal actor input: %w", err)
	}

	url := fmt.Sprintf("%s/%s/run-sync-get-dataset-items?token=%s", c.cfg.BaseURL, actorID, c.apiToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build actor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call actor %s: %w", actorID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("actor %s returned status %d: %s", actorID, resp.StatusCode, snippet)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode actor %s response: %w", actorID, err)
	}
	return items, nil
}

func processTwitter(items []map[string]any) []Post {
	posts := make([]Post, 0, len(items))
	for _, item := range items {
		likes := intField(item, "likeCount")
		retweets := intField(item, "retweetCount")
		replies := intField(item, "replyCount")
		author := "unknown"
		if a, ok := item["author"].(map[string]any); ok {
			author = stringField(a, "userName")
		}
		posts = append(posts, Post{
			Platform:        "twitter",
			ID:              stringField(item, "id"),
			Text:            stringField(item, "text"),
			Author:          author,
			Likes:           likes,
			Shares:          retweets,
			Comments:        replies,
			CreatedAt:       stringField(item, "createdAt"),
			URL:             stringField(item, "url"),
			EngagementScore: clampScore(float64(likes+retweets*2+replies*3) / 100.0),
		})
	}
	return posts
}

func processTikTok(items []map[string]any) []Post {
	posts := make([]Post, 0, len(items))
	for _, item := range items {
		likes := intField(item, "diggCount")
		shares := intField(item, "shareCount")
		comments := intField(item, "commentCount")
		views := intField(item, "playCount")
		if views == 0 {
			views = 1
		}
		author := "unknown"
		if a, ok := item["authorMeta"].(map[string]any); ok {
			author = stringField(a, "name")
		}
		rate := float64(likes+shares*2+comments*3) / float64(views) * 100
		posts = append(posts, Post{
			Platform:        "tiktok",
			ID:              stringField(item, "id"),
			Text:            stringField(item, "text"),
			Author:          author,
			Likes:           likes,
			Shares:          shares,
			Comments:        comments,
			Views:           views,
			CreatedAt:       stringField(item, "createTime"),
			URL:             stringField(item, "webVideoUrl"),
			EngagementScore: clampScore(rate),
		})
	}
	return posts
}

func processInstagram(items []map[string]any) []Post {
	posts := make([]Post, 0, len(items))
	for _, item := range items {
		likes := intField(item, "likesCount")
		comments := intField(item, "commentsCount")
		posts = append(posts, Post{
			Platform:        "instagram",
			ID:              stringField(item, "id"),
			Text:            stringField(item, "caption"),
			Author:          stringField(item, "ownerUsername"),
			Likes:           likes,
			Comments:        comments,
			CreatedAt:       stringField(item, "timestamp"),
			URL:             stringField(item, "url"),
			EngagementScore: clampScore(float64(likes+comments*5) / 50.0),
		})
	}
	return posts
}

// FormatResults renders scraped posts as a readable text block for prompts
// and operator output. Only the top posts per platform are shown.
func FormatResults(results map[string][]Post) string {
	var nonEmpty bool
	for _, posts := range results {
		if len(posts) > 0 {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return "No data found from scrapers."
	}

	var b strings.Builder
	b.WriteString("Real-time social media data:\n\n")
	for platform, posts := range results {
		if len(posts) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s results (%d items)\n", strings.Title(platform), len(posts)) //nolint:staticcheck // platform names are ASCII
		limit := 3
		if len(posts) < limit {
			limit = len(posts)
		}
		for i := 0; i < limit; i++ {
			p := &posts[i]
			text := p.Text
			if len(text) > 100 {
				text = text[:100] + "..."
			}
			fmt.Fprintf(&b, "%d. @%s: %s (engagement %.1f%%)\n", i+1, p.Author, text, p.EngagementScore)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func clampScore(score float64) float64 {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
