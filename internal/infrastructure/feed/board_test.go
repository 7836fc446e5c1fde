package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"ProblemScout/internal/scanner"
)

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	base := "https://forum.example.org/c/ideas?sort=new"
	u, err := buildPageURL(base, "p", 3)
	if err != nil {
		t.Fatalf("buildPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	q := parsed.Query()
	if q.Get("p") != "3" {
		t.Fatalf("expected p=3, got %s", q.Get("p"))
	}
	if q.Get("sort") != "new" {
		t.Fatalf("expected existing query to survive, got %s", parsed.RawQuery)
	}

	first, err := buildPageURL(base, "p", 1)
	if err != nil || first != base {
		t.Fatalf("first page should keep the base url, got %s (%v)", first, err)
	}
}

func TestParseItem(t *testing.T) {
	t.Parallel()

	html := `
	<section>
	  <article data-id="417">
	    <h2 class="title">  Bus schedules   ignore night shifts </h2>
	    <div class="body"><p>Nurses finishing at 2am have no way home.</p></div>
	    <span class="author">nightowl</span>
	    <span class="reputation">1,204 pts</span>
	    <span class="score">+17</span>
	  </article>
	</section>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	item, ok := parseItem(doc.Find("article").First(), selectorsFrom(nil), "civic/transit")
	if !ok {
		t.Fatalf("parseItem rejected a valid entry")
	}

	if item.ExternalID != "civic/transit:417" {
		t.Fatalf("unexpected id: %s", item.ExternalID)
	}
	if item.Title != "Bus schedules ignore night shifts" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.Body != "Nurses finishing at 2am have no way home." {
		t.Fatalf("unexpected body: %q", item.Body)
	}
	if item.Author != "nightowl" || item.AuthorReputation != 1204 || item.Score != 17 {
		t.Fatalf("unexpected provenance: %+v", item)
	}
	if item.Removed {
		t.Fatalf("item should not be removed")
	}
}

func TestBoardScannerPaginates(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"":  `<article data-id="1"><p class="title">First problem title here</p></article><article data-id="2" data-removed><p class="title">x</p></article>`,
		"2": `<article data-id="2"><p class="title">seen</p></article><article data-id="3"><p class="title">Third problem title here</p></article>`,
		"3": `<article data-id="3"><p class="title">repeat only</p></article>`,
	}
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		requested = append(requested, page)
		body, ok := pages[page]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	defer srv.Close()

	s := NewBoardScanner(srv.Client(), "")
	items, err := s.Scan(context.Background(), scanner.Request{
		SiteName: "forum",
		Channels: []scanner.Channel{{Name: "ideas", URL: srv.URL + "/ideas"}},
		Options:  map[string]string{"maxPages": "5"},
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if !items[1].Removed {
		t.Fatalf("expected data-removed entry to be flagged")
	}
	if items[2].ExternalID != "forum/ideas:3" {
		t.Fatalf("unexpected third id: %s", items[2].ExternalID)
	}
	if strings.Join(requested, ",") != ",2,3" {
		t.Fatalf("unexpected page sequence: %v", requested)
	}
}

func TestBoardScannerLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<article data-id="a"></article><article data-id="b"></article><article data-id="c"></article>`)
	}))
	defer srv.Close()

	items, err := NewBoardScanner(srv.Client(), "").Scan(context.Background(), scanner.Request{
		Channels: []scanner.Channel{{Name: "c", URL: srv.URL}},
		Limit:    2,
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected limit to cap items at 2, got %d", len(items))
	}
}
