package httpapi

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/export"
	"ProblemScout/internal/usecase"
)

type textRequest struct {
	Text string `json:"text"`
}

type voteRequest struct {
	Voter string `json:"voter"`
}

type submissionResponse struct {
	Problem export.ProblemRecord     `json:"problem"`
	Similar domain.SimilarityVerdict `json:"similar"`
}

func (h *handler) submitProblem(c *gin.Context) {
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}

	sub, err := h.svc.Problems.Submit(c.Request.Context(), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submissionResponse{
		Problem: export.NewProblemRecord(sub.Problem),
		Similar: sub.Similar,
	})
}

func (h *handler) listProblems(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	problems, err := h.svc.Problems.List(c.Request.Context(), domain.ProblemFilter{
		Category: c.Query("category"),
		Origin:   domain.Origin(c.Query("origin")),
		Sort:     domain.ProblemSort(c.Query("sort")),
		Limit:    limit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, export.NewProblemRecords(problems))
}

func (h *handler) getProblem(c *gin.Context) {
	problem, err := h.svc.Problems.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, export.NewProblemRecord(problem))
}

func (h *handler) voteProblem(c *gin.Context) {
	var req voteRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	popularity, err := h.svc.Problems.Vote(c.Request.Context(), c.Param("id"), req.Voter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"problemId": c.Param("id"), "popularity": popularity})
}

func (h *handler) matchExperts(c *gin.Context) {
	matches, err := h.svc.Insights.Matches(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, matches)
}

func (h *handler) previewSimilarity(c *gin.Context) {
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}

	verdict, err := h.svc.Problems.Preview(c.Request.Context(), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}

func (h *handler) listClusters(c *gin.Context) {
	clusters, err := h.svc.Insights.Clusters(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if clusters == nil {
		clusters = []domain.Cluster{}
	}
	c.JSON(http.StatusOK, clusters)
}

func (h *handler) registerExpert(c *gin.Context) {
	var req usecase.ExpertInput
	if !bindJSON(c, &req) {
		return
	}

	expert, err := h.svc.Experts.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expert)
}

func (h *handler) searchExperts(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	experts, err := h.svc.Experts.Search(c.Request.Context(), domain.ExpertQuery{
		Tag:   c.Query("tag"),
		Text:  c.Query("q"),
		Limit: limit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	if experts == nil {
		experts = []domain.Expert{}
	}
	c.JSON(http.StatusOK, experts)
}

func (h *handler) ingest(c *gin.Context) {
	if h.svc.Ingestion == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingestion is not configured"})
		return
	}

	report, err := h.svc.Ingestion.Run(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) exportProblems(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	problems, err := h.svc.Problems.List(c.Request.Context(), domain.ProblemFilter{
		Category: c.Query("category"),
		Origin:   domain.Origin(c.Query("origin")),
		Sort:     domain.ProblemSort(c.Query("sort")),
		Limit:    usecase.MaxListLimit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteProblems(&buf, format, problems); err != nil {
		h.writeError(c, err)
		return
	}
	h.attachment(c, "problems", format, buf.Bytes())
}

func (h *handler) exportClusters(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	clusters, err := h.svc.Insights.Clusters(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteClusters(&buf, format, clusters); err != nil {
		h.writeError(c, err)
		return
	}
	h.attachment(c, "clusters", format, buf.Bytes())
}

func (h *handler) attachment(c *gin.Context, name string, format export.Format, body []byte) {
	c.Header("Content-Disposition", "attachment; filename=\""+name+"."+string(format)+"\"")
	c.Data(http.StatusOK, format.ContentType(), body)
}

// writeError maps domain errors onto HTTP status codes.
func (h *handler) writeError(c *gin.Context, err error) {
	var (
		vErr   *domain.ValidationError
		dupErr *domain.DuplicateError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.As(err, &dupErr):
		c.JSON(http.StatusConflict, gin.H{"error": dupErr.Error(), "similar": dupErr.Verdict})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key, "field": key})
		return 0, false
	}
	return n, true
}
