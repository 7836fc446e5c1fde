// Package export renders problems and clusters as CSV or JSON documents.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ProblemScout/internal/domain"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json"; empty means JSON.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", &domain.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", raw)}
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// ProblemRecord is the external representation of a problem.
type ProblemRecord struct {
	ID               string    `json:"id"`
	Origin           string    `json:"origin"`
	Channel          string    `json:"channel,omitempty"`
	Author           string    `json:"author,omitempty"`
	AuthorReputation int       `json:"authorReputation,omitempty"`
	ExternalID       string    `json:"externalId,omitempty"`
	Text             string    `json:"text"`
	Summary          *string   `json:"summary"`
	Keywords         []string  `json:"keywords"`
	Category         *string   `json:"category"`
	Popularity       int       `json:"popularity"`
	Enriched         bool      `json:"enriched"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewProblemRecord converts a domain problem.
func NewProblemRecord(p domain.Problem) ProblemRecord {
	rec := ProblemRecord{
		ID:               p.ID,
		Origin:           string(p.Origin),
		Channel:          p.Channel,
		Author:           p.Author,
		AuthorReputation: p.AuthorReputation,
		ExternalID:       p.ExternalID,
		Text:             p.Text,
		Summary:          p.Summary,
		Keywords:         p.Keywords,
		Popularity:       p.Popularity,
		Enriched:         p.Enriched,
		CreatedAt:        p.CreatedAt,
	}
	if p.Category != nil {
		category := string(*p.Category)
		rec.Category = &category
	}
	return rec
}

// NewProblemRecords converts a slice, never returning nil.
func NewProblemRecords(problems []domain.Problem) []ProblemRecord {
	out := make([]ProblemRecord, 0, len(problems))
	for _, p := range problems {
		out = append(out, NewProblemRecord(p))
	}
	return out
}

var problemHeader = []string{
	"id", "origin", "channel", "author", "author_reputation", "external_id",
	"text", "summary", "keywords", "category", "popularity", "created_at",
}

// WriteProblems encodes problems in the given format.
func WriteProblems(w io.Writer, format Format, problems []domain.Problem) error {
	if format == FormatCSV {
		return writeProblemsCSV(w, problems)
	}
	return writeJSON(w, NewProblemRecords(problems))
}

// WriteClusters encodes clusters in the given format.
func WriteClusters(w io.Writer, format Format, clusters []domain.Cluster) error {
	if format == FormatCSV {
		return writeClustersCSV(w, clusters)
	}
	if clusters == nil {
		clusters = []domain.Cluster{}
	}
	return writeJSON(w, clusters)
}

func writeProblemsCSV(w io.Writer, problems []domain.Problem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(problemHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range problems {
		row := []string{
			p.ID,
			string(p.Origin),
			p.Channel,
			p.Author,
			strconv.Itoa(p.AuthorReputation),
			p.ExternalID,
			p.Text,
			p.SummaryText(),
			strings.Join(p.Keywords, ";"),
			p.CategoryName(),
			strconv.Itoa(p.Popularity),
			p.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write problem %s: %w", p.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeClustersCSV(w io.Writer, clusters []domain.Cluster) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "problem_count", "problem_ids", "themes", "innovation_gap"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range clusters {
		row := []string{
			c.Name,
			strconv.Itoa(len(c.ProblemIDs)),
			strings.Join(c.ProblemIDs, ";"),
			strings.Join(c.Themes, ";"),
			strconv.Itoa(c.InnovationGap),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write cluster %s: %w", c.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
