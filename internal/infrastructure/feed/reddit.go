package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/scanner"
)

const (
	redditDefaultLimit = 25
	redditMaxLimit     = 100
)

// RedditOptions tunes the listing client.
type RedditOptions struct {
	UserAgent         string
	RequestsPerSecond float64
	PostLimit         int
	Logger            *slog.Logger
}

// RedditScanner reads subreddit JSON listings and resolves author karma as reputation.
type RedditScanner struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	limit     int
	logger    *slog.Logger
}

// NewRedditScanner wires an HTTP client with a shared request rate limit.
func NewRedditScanner(client *http.Client, opts RedditOptions) *RedditScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "ProblemScout/1.0"
	}
	limit := opts.PostLimit
	if limit <= 0 {
		limit = redditDefaultLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedditScanner{client: client, limiter: limiter, userAgent: userAgent, limit: limit, logger: logger}
}

// Name identifies the strategy inside the registry.
func (r *RedditScanner) Name() string {
	return "reddit"
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Name              string  `json:"name"`
	ID                string  `json:"id"`
	Subreddit         string  `json:"subreddit"`
	Title             string  `json:"title"`
	Selftext          string  `json:"selftext"`
	SelftextHTML      string  `json:"selftext_html"`
	Score             int     `json:"score"`
	Author            string  `json:"author"`
	CreatedUTC        float64 `json:"created_utc"`
	RemovedByCategory string  `json:"removed_by_category"`
}

type redditAbout struct {
	Data struct {
		TotalKarma   *int `json:"total_karma"`
		LinkKarma    int  `json:"link_karma"`
		CommentKarma int  `json:"comment_karma"`
	} `json:"data"`
}

// Scan fetches every channel listing. A failing channel is logged and skipped; the scan
// errors only when every channel fails. Set option "reputation" to "false" to skip karma lookups.
func (r *RedditScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	if len(req.Channels) == 0 {
		return nil, fmt.Errorf("no channels provided for site %s", req.SiteName)
	}

	limit := r.limit
	if req.Limit > 0 {
		limit = req.Limit
	}
	if limit > redditMaxLimit {
		limit = redditMaxLimit
	}
	withReputation := !strings.EqualFold(req.Options["reputation"], "false")

	karma := map[string]int{}
	results := make([]domain.FeedItem, 0)
	seen := map[string]struct{}{}
	var failures []error

	for _, ch := range req.Channels {
		listing, err := r.fetchListing(ctx, ch.URL, limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			failures = append(failures, fmt.Errorf("channel %s: %w", ch.Name, err))
			r.logger.Warn("reddit channel skipped", "site", req.SiteName, "channel", ch.Name, "err", err)
			continue
		}

		for _, child := range listing.Data.Children {
			if child.Kind != "" && child.Kind != "t3" {
				continue
			}
			item := toFeedItem(child.Data, ch.Name)
			if _, ok := seen[item.ExternalID]; ok {
				continue
			}
			seen[item.ExternalID] = struct{}{}

			if withReputation && !item.Removed && item.Author != "" && item.Author != "[deleted]" {
				rep, ok := karma[item.Author]
				if !ok {
					// Missing karma is not fatal; reputation stays zero.
					rep, _ = r.authorKarma(ctx, ch.URL, item.Author)
					karma[item.Author] = rep
				}
				item.AuthorReputation = rep
			}
			results = append(results, item)
		}
	}

	if len(failures) == len(req.Channels) {
		return nil, errors.Join(failures...)
	}
	return results, nil
}

func (r *RedditScanner) fetchListing(ctx context.Context, channelURL string, limit int) (redditListing, error) {
	var listing redditListing
	listingURL, err := buildListingURL(channelURL, limit)
	if err != nil {
		return listing, err
	}
	err = r.getJSON(ctx, listingURL, &listing)
	return listing, err
}

func toFeedItem(post redditPost, channel string) domain.FeedItem {
	body := post.Selftext
	if post.SelftextHTML != "" {
		if text, err := htmlToText(post.SelftextHTML); err == nil && text != "" {
			body = text
		}
	}

	if post.Subreddit != "" {
		channel = "r/" + post.Subreddit
	}
	externalID := post.Name
	if externalID == "" && post.ID != "" {
		externalID = "t3_" + post.ID
	}

	removed := post.RemovedByCategory != ""
	trimmed := strings.TrimSpace(post.Selftext)
	if trimmed == "[removed]" || trimmed == "[deleted]" {
		removed = true
	}

	var postedAt time.Time
	if post.CreatedUTC > 0 {
		postedAt = time.Unix(int64(post.CreatedUTC), 0).UTC()
	}

	return domain.FeedItem{
		ExternalID: externalID,
		Channel:    channel,
		Title:      strings.TrimSpace(post.Title),
		Body:       strings.TrimSpace(body),
		Score:      post.Score,
		Author:     post.Author,
		PostedAt:   postedAt,
		Removed:    removed,
	}
}

// htmlToText unescapes reddit's entity-encoded HTML and extracts its visible text.
func htmlToText(encoded string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html.UnescapeString(encoded)))
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func (r *RedditScanner) authorKarma(ctx context.Context, channelURL, author string) (int, error) {
	parsed, err := url.Parse(channelURL)
	if err != nil {
		return 0, err
	}
	aboutURL := url.URL{Scheme: parsed.Scheme, Host: parsed.Host, Path: "/user/" + author + "/about.json"}

	var about redditAbout
	if err := r.getJSON(ctx, aboutURL.String(), &about); err != nil {
		return 0, err
	}
	if about.Data.TotalKarma != nil {
		return *about.Data.TotalKarma, nil
	}
	return about.Data.LinkKarma + about.Data.CommentKarma, nil
}

func (r *RedditScanner) getJSON(ctx context.Context, target string, v any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

func buildListingURL(base string, limit int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid channel url %s: %w", base, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid channel url %s", base)
	}

	query := parsed.Query()
	query.Set("limit", strconv.Itoa(limit))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
