package domain

import (
	"strings"
	"time"
)

// FeedItem is a raw entry pulled from a third-party channel before normalization.
type FeedItem struct {
	ExternalID       string
	Channel          string
	Title            string
	Body             string
	Score            int
	Author           string
	AuthorReputation int
	PostedAt         time.Time
	Removed          bool
}

// Text joins title and body into the problem text.
func (f FeedItem) Text() string {
	title := strings.TrimSpace(f.Title)
	body := strings.TrimSpace(f.Body)
	switch {
	case title == "":
		return body
	case body == "" || body == title:
		return title
	default:
		return title + "\n\n" + body
	}
}

// NewFeedProblem builds an unenriched External-Feed problem carrying the item's provenance.
func NewFeedProblem(item FeedItem, now time.Time) Problem {
	p := NewProblem(item.Text(), OriginFeed, now)
	p.Channel = item.Channel
	p.Author = item.Author
	p.AuthorReputation = item.AuthorReputation
	p.ExternalID = item.ExternalID
	return p
}
