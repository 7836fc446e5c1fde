package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/scanner"
)

var scoreExpr = regexp.MustCompile(`-?\d+`)

// BoardScanner scrapes HTML discussion boards using CSS selectors taken from site options.
//
// Options (all optional): itemSelector, titleSelector, bodySelector, authorSelector,
// reputationSelector, scoreSelector, removedSelector, idAttr, pageParam, maxPages.
type BoardScanner struct {
	client    *http.Client
	userAgent string
}

// NewBoardScanner wires an HTTP client.
func NewBoardScanner(client *http.Client, userAgent string) *BoardScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if userAgent == "" {
		userAgent = "ProblemScout/1.0"
	}
	return &BoardScanner{client: client, userAgent: userAgent}
}

// Name identifies the strategy inside the registry.
func (b *BoardScanner) Name() string {
	return "board"
}

type boardSelectors struct {
	item       string
	title      string
	body       string
	author     string
	reputation string
	score      string
	removed    string
	idAttr     string
	pageParam  string
	maxPages   int
}

func selectorsFrom(opts map[string]string) boardSelectors {
	get := func(key, def string) string {
		if v := strings.TrimSpace(opts[key]); v != "" {
			return v
		}
		return def
	}
	maxPages, err := strconv.Atoi(get("maxPages", "1"))
	if err != nil || maxPages < 1 {
		maxPages = 1
	}
	return boardSelectors{
		item:       get("itemSelector", "article"),
		title:      get("titleSelector", ".title"),
		body:       get("bodySelector", ".body"),
		author:     get("authorSelector", ".author"),
		reputation: get("reputationSelector", ".reputation"),
		score:      get("scoreSelector", ".score"),
		removed:    get("removedSelector", ".removed"),
		idAttr:     get("idAttr", "data-id"),
		pageParam:  get("pageParam", "page"),
		maxPages:   maxPages,
	}
}

// Scan walks each channel page by page until a page yields nothing new or maxPages is reached.
func (b *BoardScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	if len(req.Channels) == 0 {
		return nil, fmt.Errorf("no channels provided for site %s", req.SiteName)
	}

	sel := selectorsFrom(req.Options)
	results := make([]domain.FeedItem, 0)
	seen := map[string]struct{}{}

	for _, ch := range req.Channels {
		channelCount := 0
		for page := 1; page <= sel.maxPages; page++ {
			pageURL, err := buildPageURL(ch.URL, sel.pageParam, page)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
			}

			doc, err := b.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
			}

			fresh := 0
			for _, item := range extractItems(doc, sel, channelName(req.SiteName, ch.Name)) {
				if _, ok := seen[item.ExternalID]; ok {
					continue
				}
				seen[item.ExternalID] = struct{}{}
				if req.Limit > 0 && channelCount >= req.Limit {
					break
				}
				results = append(results, item)
				fresh++
				channelCount++
			}

			if fresh == 0 || (req.Limit > 0 && channelCount >= req.Limit) {
				break
			}
		}
	}

	return results, nil
}

func (b *BoardScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("board returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractItems(doc *goquery.Document, sel boardSelectors, channel string) []domain.FeedItem {
	var collected []domain.FeedItem
	doc.Find(sel.item).Each(func(_ int, s *goquery.Selection) {
		if item, ok := parseItem(s, sel, channel); ok {
			collected = append(collected, item)
		}
	})
	return collected
}

func parseItem(s *goquery.Selection, sel boardSelectors, channel string) (domain.FeedItem, bool) {
	title := collapse(s.Find(sel.title).First().Text())
	body := collapse(s.Find(sel.body).First().Text())

	id, _ := s.Attr(sel.idAttr)
	id = strings.TrimSpace(id)
	if id == "" {
		if href, ok := s.Find("a[href]").First().Attr("href"); ok {
			id = strings.TrimSpace(href)
		}
	}
	if id == "" {
		return domain.FeedItem{}, false
	}

	removed := s.Find(sel.removed).Length() > 0
	if _, ok := s.Attr("data-removed"); ok {
		removed = true
	}

	return domain.FeedItem{
		ExternalID:       channel + ":" + id,
		Channel:          channel,
		Title:            title,
		Body:             body,
		Score:            firstInt(s.Find(sel.score).First().Text()),
		Author:           collapse(s.Find(sel.author).First().Text()),
		AuthorReputation: firstInt(s.Find(sel.reputation).First().Text()),
		Removed:          removed,
	}, true
}

func channelName(site, channel string) string {
	if channel == "" {
		return site
	}
	return fmt.Sprintf("%s/%s", site, channel)
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func firstInt(text string) int {
	match := scoreExpr.FindString(strings.ReplaceAll(text, ",", ""))
	if match == "" {
		return 0
	}
	v, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return v
}

func buildPageURL(base, param string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid channel url %s: %w", base, err)
	}
	if page <= 1 {
		return parsed.String(), nil
	}

	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
