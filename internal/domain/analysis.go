package domain

// Cluster is a derived thematic group of problems.
type Cluster struct {
	Name          string   `json:"name"`
	ProblemIDs    []string `json:"problemIds"`
	Themes        []string `json:"commonThemes"`
	InnovationGap int      `json:"innovationGap"`
}

// SimilarityVerdict is the outcome of a duplicate check.
type SimilarityVerdict struct {
	IsDuplicate bool    `json:"isDuplicate"`
	NearestID   string  `json:"nearestId,omitempty"`
	Closeness   float64 `json:"closeness"`
	Rationale   string  `json:"rationale"`
}

// MatchResult is an expert scored against a single problem.
type MatchResult struct {
	Expert  Expert   `json:"expert"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}
