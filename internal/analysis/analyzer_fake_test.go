package analysis

import (
	"context"
	"encoding/json"
	"sync"

	"ProblemScout/internal/ports"
)

// fakeAnalyzer replays a canned response and records every request.
type fakeAnalyzer struct {
	mu       sync.Mutex
	response string
	err      error
	requests []ports.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.response), nil
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
