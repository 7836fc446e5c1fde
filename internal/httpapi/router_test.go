package httpapi

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProblemScout/internal/analysis"
	"ProblemScout/internal/domain"
	"ProblemScout/internal/infrastructure/storage"
	"ProblemScout/internal/ports"
	"ProblemScout/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var firstPriorID = regexp.MustCompile(`- ID: (\S+) \|`)

// stubAnalyzer classifies everything as Healthcare and flags candidates
// containing "DUPLICATE" as duplicates of the first prior problem.
type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, req ports.AnalysisRequest) (json.RawMessage, error) {
	switch req.Task {
	case "classify_problem":
		return json.RawMessage(`{"summary":"Clinic referrals get lost","keywords":["clinics","referrals"],"category":"Healthcare"}`), nil
	case "check_similarity":
		parts := strings.SplitN(req.Prompt, "EXISTING PROBLEMS:", 2)
		m := firstPriorID.FindStringSubmatch(req.Prompt)
		if len(parts) == 2 && m != nil && strings.Contains(parts[0], "DUPLICATE") {
			return json.RawMessage(`{"is_duplicate":true,"similar_problem_id":"` + m[1] + `","similarity_score":0.91,"reasoning":"same need"}`), nil
		}
		return json.RawMessage(`{"is_duplicate":false,"similar_problem_id":"","similarity_score":0.1,"reasoning":"distinct"}`), nil
	}
	return nil, errors.New("unexpected task")
}

type staticSource []domain.FeedItem

func (s staticSource) Fetch(context.Context) ([]domain.FeedItem, error) { return s, nil }

func newTestServer(t *testing.T, source ports.FeedSource) http.Handler {
	t.Helper()

	ctx := context.Background()
	db, err := storage.Open(ctx, storage.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := storage.NewSQLRepository(db, storage.DialectSQLite)
	require.NoError(t, repo.Migrate(ctx))

	cfg := analysis.DefaultConfig()
	deps := usecase.Deps{
		Problems:   repo,
		Votes:      repo,
		Experts:    repo,
		Source:     source,
		Classifier: analysis.NewClassifier(stubAnalyzer{}, cfg, nil),
		Similarity: analysis.NewSimilarityDetector(stubAnalyzer{}, cfg, nil),
		Analysis:   cfg,
		Now:        func() time.Time { return time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC) },
	}

	svc := Services{
		Problems: usecase.NewProblems(deps),
		Experts:  usecase.NewExperts(deps),
		Insights: usecase.NewInsights(deps),
	}
	if source != nil {
		svc.Ingestion = usecase.NewIngestion(deps)
	}
	return NewRouter(svc, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProblemLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/problems", `{"text":"too short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text", decode[map[string]any](t, rec)["field"])

	rec = do(t, h, http.MethodPost, "/api/problems", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/problems", `{"text":"Rural clinics keep losing referral letters"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[struct {
		Problem struct {
			ID       string   `json:"id"`
			Origin   string   `json:"origin"`
			Category string   `json:"category"`
			Keywords []string `json:"keywords"`
		} `json:"problem"`
	}](t, rec)
	id := created.Problem.ID
	assert.Equal(t, "Direct", created.Problem.Origin)
	assert.Equal(t, "Healthcare", created.Problem.Category)
	assert.Equal(t, []string{"clinics", "referrals"}, created.Problem.Keywords)

	rec = do(t, h, http.MethodPost, "/api/problems", `{"text":"DUPLICATE clinics misplace referral letters"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[struct {
		Similar domain.SimilarityVerdict `json:"similar"`
	}](t, rec)
	assert.Equal(t, id, conflict.Similar.NearestID)

	rec = do(t, h, http.MethodPost, "/api/similarity", `{"text":"DUPLICATE clinics misplace referral letters"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.SimilarityVerdict](t, rec).IsDuplicate)

	rec = do(t, h, http.MethodGet, "/api/problems/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/problems/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	for want := 1; want <= 2; want++ {
		rec = do(t, h, http.MethodPost, "/api/problems/"+id+"/votes", "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.EqualValues(t, want, decode[map[string]any](t, rec)["popularity"])
	}
	rec = do(t, h, http.MethodPost, "/api/problems/missing/votes", `{"voter":"ann"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/problems?sort=popular&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/problems?origin=Pigeon", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/problems?limit=ten", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExpertsAndMatches(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, nil)

	rec := do(t, h, http.MethodPost, "/api/experts", `{"name":"Ada","expertise":["Finance"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "contact", decode[map[string]any](t, rec)["field"])

	rec = do(t, h, http.MethodPost, "/api/experts", `{"name":"Dr. Lee","expertise":["Healthcare"],"contact":"lee@example.org"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/api/experts", `{"name":"Sailor","expertise":["Maritime"],"contact":"sea@example.org"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/experts?tag=healthcare", "")
	require.Equal(t, http.StatusOK, rec.Code)
	experts := decode[[]domain.Expert](t, rec)
	require.Len(t, experts, 1)
	assert.Equal(t, "Dr. Lee", experts[0].Name)

	rec = do(t, h, http.MethodPost, "/api/problems", `{"text":"Rural clinics keep losing referral letters"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[struct {
		Problem struct {
			ID string `json:"id"`
		} `json:"problem"`
	}](t, rec).Problem.ID

	rec = do(t, h, http.MethodGet, "/api/problems/"+id+"/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode[[]domain.MatchResult](t, rec)
	require.Len(t, matches, 1)
	assert.Equal(t, "Dr. Lee", matches[0].Expert.Name)
	assert.Equal(t, 50, matches[0].Score)

	rec = do(t, h, http.MethodGet, "/api/problems/missing/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestIngestClustersAndExport(t *testing.T) {
	t.Parallel()

	source := staticSource{
		{ExternalID: "t3_a", Title: "Night buses skip hospital stops", Channel: "r/transit"},
		{ExternalID: "t3_b", Title: "Farm co-ops lack shared cold storage", Channel: "r/farming"},
	}
	h := newTestServer(t, source)

	rec := do(t, h, http.MethodPost, "/api/ingest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.Report{Fetched: 2, Created: 2}, decode[usecase.Report](t, rec))

	rec = do(t, h, http.MethodPost, "/api/ingest", "")
	assert.Equal(t, usecase.Report{Fetched: 2, Skipped: 2}, decode[usecase.Report](t, rec))

	rec = do(t, h, http.MethodGet, "/api/clusters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	clusters := decode[[]domain.Cluster](t, rec)
	require.Len(t, clusters, 2)
	for _, c := range clusters {
		assert.Equal(t, "clinics", c.Name)
		assert.Len(t, c.ProblemIDs, 1)
	}

	rec = do(t, h, http.MethodGet, "/api/export/problems?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "problems.csv")
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rec = do(t, h, http.MethodGet, "/api/export/clusters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Cluster](t, rec), 2)

	rec = do(t, h, http.MethodGet, "/api/export/clusters?format=xml", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestWithoutSource(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(t, nil), http.MethodPost, "/api/ingest", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
