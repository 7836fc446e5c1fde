// Package analysis holds the enrichment, deduplication, clustering and
// matching logic. Every component recovers locally from analyzer failures.
package analysis

import (
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Config groups the tunable constants of the analysis pipeline.
type Config struct {
	Categories       []string `yaml:"categories"`
	CatchAllCategory string   `yaml:"catchAllCategory"`
	SummaryMaxRunes  int      `yaml:"summaryMaxRunes"`
	MaxKeywords      int      `yaml:"maxKeywords"`
	SimilarityWindow int      `yaml:"similarityWindow"`
	// PromptTextMaxRunes bounds each prior problem quoted in a similarity prompt.
	PromptTextMaxRunes int           `yaml:"promptTextMaxRunes"`
	Cluster            ClusterConfig `yaml:"cluster"`
	Weights            MatchWeights  `yaml:"weights"`
}

// ClusterConfig tunes the cluster engine. Gap values are heuristic defaults.
type ClusterConfig struct {
	MinBatch         int `yaml:"minBatch"`
	MaxBatch         int `yaml:"maxBatch"`
	MinClusters      int `yaml:"minClusters"`
	MaxClusters      int `yaml:"maxClusters"`
	SummaryMaxRunes  int `yaml:"summaryMaxRunes"`
	MaxThemes        int `yaml:"maxThemes"`
	SmallBatchGap    int `yaml:"smallBatchGap"`
	MiscellaneousGap int `yaml:"miscellaneousGap"`
	FallbackGap      int `yaml:"fallbackGap"`
}

// MatchWeights are the additive increments of the match scorer.
type MatchWeights struct {
	Category            int `yaml:"category"`
	Keyword             int `yaml:"keyword"`
	DescriptionCategory int `yaml:"descriptionCategory"`
	DescriptionKeyword  int `yaml:"descriptionKeyword"`
}

// DefaultConfig returns the stock categories, weights and gap scores.
func DefaultConfig() Config {
	return Config{
		Categories: []string{
			"Technology",
			"Healthcare",
			"Education",
			"Finance",
			"Environment",
			"Transportation",
			"Social",
			"Business",
			"Other",
		},
		CatchAllCategory:   "Other",
		SummaryMaxRunes:    200,
		MaxKeywords:        5,
		SimilarityWindow:   50,
		PromptTextMaxRunes: 300,
		Cluster: ClusterConfig{
			MinBatch:         3,
			MaxBatch:         100,
			MinClusters:      2,
			MaxClusters:      5,
			SummaryMaxRunes:  200,
			MaxThemes:        5,
			SmallBatchGap:    5,
			MiscellaneousGap: 5,
			FallbackGap:      6,
		},
		Weights: MatchWeights{
			Category:            50,
			Keyword:             15,
			DescriptionCategory: 20,
			DescriptionKeyword:  10,
		},
	}
}

// Normalize fills zero values from DefaultConfig.
func (c Config) Normalize() Config {
	def := DefaultConfig()

	if len(c.Categories) == 0 {
		c.Categories = def.Categories
	}
	if c.CatchAllCategory == "" {
		c.CatchAllCategory = def.CatchAllCategory
	}
	if !contains(c.Categories, c.CatchAllCategory) {
		c.Categories = append(append([]string{}, c.Categories...), c.CatchAllCategory)
	}
	fillInt(&c.SummaryMaxRunes, def.SummaryMaxRunes)
	fillInt(&c.MaxKeywords, def.MaxKeywords)
	fillInt(&c.SimilarityWindow, def.SimilarityWindow)
	fillInt(&c.PromptTextMaxRunes, def.PromptTextMaxRunes)

	fillInt(&c.Cluster.MinBatch, def.Cluster.MinBatch)
	fillInt(&c.Cluster.MaxBatch, def.Cluster.MaxBatch)
	fillInt(&c.Cluster.MinClusters, def.Cluster.MinClusters)
	fillInt(&c.Cluster.MaxClusters, def.Cluster.MaxClusters)
	fillInt(&c.Cluster.SummaryMaxRunes, def.Cluster.SummaryMaxRunes)
	fillInt(&c.Cluster.MaxThemes, def.Cluster.MaxThemes)
	fillInt(&c.Cluster.SmallBatchGap, def.Cluster.SmallBatchGap)
	fillInt(&c.Cluster.MiscellaneousGap, def.Cluster.MiscellaneousGap)
	fillInt(&c.Cluster.FallbackGap, def.Cluster.FallbackGap)

	fillInt(&c.Weights.Category, def.Weights.Category)
	fillInt(&c.Weights.Keyword, def.Weights.Keyword)
	fillInt(&c.Weights.DescriptionCategory, def.Weights.DescriptionCategory)
	fillInt(&c.Weights.DescriptionKeyword, def.Weights.DescriptionKeyword)

	return c
}

// IsCategory reports membership in the configured category set.
func (c Config) IsCategory(value string) bool {
	return contains(c.Categories, value)
}

func fillInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// truncateRunes cuts s to at most n runes, appending "..." when something was cut.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
