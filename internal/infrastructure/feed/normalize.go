// Package feed pulls third-party posts and normalizes them into problems.
package feed

import (
	"strings"
	"unicode/utf8"

	"ProblemScout/internal/domain"
)

var removedMarkers = []string{"[removed]", "[deleted]"}

// Usable reports whether the item carries content worth classifying.
func Usable(item domain.FeedItem, minLength int) bool {
	if item.Removed {
		return false
	}
	body := strings.TrimSpace(item.Body)
	for _, marker := range removedMarkers {
		if strings.EqualFold(body, marker) || strings.EqualFold(strings.TrimSpace(item.Title), marker) {
			return false
		}
	}
	return utf8.RuneCountInString(item.Text()) >= minLength
}

// Filter drops unusable items and repeated external ids, keeping first occurrences.
func Filter(items []domain.FeedItem, minLength int) []domain.FeedItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.FeedItem, 0, len(items))
	for _, item := range items {
		if !Usable(item, minLength) {
			continue
		}
		if item.ExternalID != "" {
			if _, ok := seen[item.ExternalID]; ok {
				continue
			}
			seen[item.ExternalID] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}
