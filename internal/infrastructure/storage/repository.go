package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ProblemScout/internal/domain"
	"ProblemScout/internal/ports"
)

const defaultListLimit = 100

var problemColumns = []string{
	"id", "origin", "channel", "author", "author_reputation", "external_id",
	"text", "summary", "keywords", "category", "popularity", "enriched", "created_at",
}

var expertColumns = []string{
	"id", "name", "affiliation", "expertise", "description", "contact", "created_at",
}

// SQLRepository persists problems, votes and experts through database/sql.
type SQLRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.ProblemRepository = (*SQLRepository)(nil)
	_ ports.VoteRepository    = (*SQLRepository)(nil)
	_ ports.ExpertRepository  = (*SQLRepository)(nil)
)

// NewSQLRepository wires a sql.DB with the placeholder style of dialect.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()),
	}
}

// CreateProblem inserts a new problem.
func (r *SQLRepository) CreateProblem(ctx context.Context, p domain.Problem) error {
	if err := p.Validate(); err != nil {
		return err
	}

	keywords, err := encodeList(p.Keywords)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("problems").
		Columns(problemColumns...).
		Values(
			p.ID, string(p.Origin), p.Channel, p.Author, p.AuthorReputation, nullString(p.ExternalID),
			p.Text, p.Summary, keywords, categoryValue(p.Category), p.Popularity, p.Enriched, p.CreatedAt.UnixMilli(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert problem: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert problem: %w", err)
	}
	return nil
}

// GetProblem returns domain.ErrNotFound for unknown ids.
func (r *SQLRepository) GetProblem(ctx context.Context, id string) (domain.Problem, error) {
	problems, err := r.queryProblems(ctx, r.sb.Select(problemColumns...).From("problems").Where(sq.Eq{"id": id}).Limit(1))
	if err != nil {
		return domain.Problem{}, err
	}
	if len(problems) == 0 {
		return domain.Problem{}, fmt.Errorf("problem %s: %w", id, domain.ErrNotFound)
	}
	return problems[0], nil
}

// ListProblems applies category, origin, ordering and limit filters.
func (r *SQLRepository) ListProblems(ctx context.Context, filter domain.ProblemFilter) ([]domain.Problem, error) {
	q := r.sb.Select(problemColumns...).From("problems")
	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Origin != "" {
		q = q.Where(sq.Eq{"origin": string(filter.Origin)})
	}
	if filter.Sort == domain.SortPopular {
		q = q.OrderBy("popularity DESC", "created_at DESC")
	} else {
		q = q.OrderBy("created_at DESC")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.queryProblems(ctx, q.Limit(uint64(limit)))
}

// RecentProblems returns up to n problems, newest first.
func (r *SQLRepository) RecentProblems(ctx context.Context, n int) ([]domain.Problem, error) {
	if n <= 0 {
		return []domain.Problem{}, nil
	}
	return r.queryProblems(ctx, r.sb.Select(problemColumns...).
		From("problems").
		OrderBy("created_at DESC").
		Limit(uint64(n)))
}

// ClusterCandidates returns enriched problems that carry a summary.
func (r *SQLRepository) ClusterCandidates(ctx context.Context, limit int) ([]domain.Problem, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return r.queryProblems(ctx, r.sb.Select(problemColumns...).
		From("problems").
		Where(sq.Eq{"enriched": true}).
		Where(sq.NotEq{"summary": nil}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)))
}

// ExistingExternalIDs returns the subset of ids already stored.
func (r *SQLRepository) ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.sb.Select("external_id").From("problems").Where(sq.Eq{"external_id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build external id query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query external ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan external id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// RecomputePopularity sets popularity to the vote count and returns it.
func (r *SQLRepository) RecomputePopularity(ctx context.Context, problemID string) (int, error) {
	query, args, err := r.sb.Update("problems").
		Set("popularity", sq.Expr("(SELECT COUNT(*) FROM votes WHERE votes.problem_id = ?)", problemID)).
		Where(sq.Eq{"id": problemID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build popularity update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update popularity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, fmt.Errorf("problem %s: %w", problemID, domain.ErrNotFound)
	}

	return r.CountVotes(ctx, problemID)
}

// CreateVote inserts a vote for an existing problem.
func (r *SQLRepository) CreateVote(ctx context.Context, vote domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Select("1").From("problems").Where(sq.Eq{"id": vote.ProblemID}).ToSql()
	if err != nil {
		return fmt.Errorf("build problem lookup: %w", err)
	}
	var one int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("problem %s: %w", vote.ProblemID, domain.ErrNotFound)
		}
		return fmt.Errorf("lookup problem: %w", err)
	}

	query, args, err = r.sb.Insert("votes").
		Columns("id", "problem_id", "voter", "created_at").
		Values(vote.ID, vote.ProblemID, vote.Voter, vote.CreatedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert vote: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote: %w", err)
	}
	return nil
}

// CountVotes returns the number of votes cast for a problem.
func (r *SQLRepository) CountVotes(ctx context.Context, problemID string) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("votes").Where(sq.Eq{"problem_id": problemID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build vote count: %w", err)
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// CreateExpert inserts the expert and its tag index rows atomically.
func (r *SQLRepository) CreateExpert(ctx context.Context, e domain.Expert) error {
	if err := e.Validate(); err != nil {
		return err
	}
	expertise, err := encodeList(e.Expertise)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin expert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.sb.Insert("experts").
		Columns(expertColumns...).
		Values(e.ID, e.Name, e.Affiliation, expertise, e.Description, e.Contact, e.CreatedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert expert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert expert: %w", err)
	}

	tags := r.sb.Insert("expert_tags").Columns("expert_id", "tag", "tag_lower", "position")
	for i, tag := range e.Expertise {
		tags = tags.Values(e.ID, tag, strings.ToLower(tag), i)
	}
	query, args, err = tags.ToSql()
	if err != nil {
		return fmt.Errorf("build insert tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert expert tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expert: %w", err)
	}
	return nil
}

// ListExperts returns the full roster in registration order.
func (r *SQLRepository) ListExperts(ctx context.Context) ([]domain.Expert, error) {
	return r.queryExperts(ctx, r.sb.Select(expertColumns...).From("experts").OrderBy("created_at ASC", "id ASC"))
}

// likeEscaper makes free text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchExperts filters by exact tag (case-insensitive) and free text.
func (r *SQLRepository) SearchExperts(ctx context.Context, query domain.ExpertQuery) ([]domain.Expert, error) {
	q := r.sb.Select(expertColumns...).From("experts")

	if tag := strings.TrimSpace(query.Tag); tag != "" {
		q = q.Where(sq.Expr("id IN (SELECT expert_id FROM expert_tags WHERE tag_lower = ?)", strings.ToLower(tag)))
	}
	if text := strings.TrimSpace(query.Text); text != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(text)) + "%"
		q = q.Where(sq.Or{
			sq.Expr(`LOWER(name) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(affiliation) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(description) LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`LOWER(expertise) LIKE ? ESCAPE '\'`, pattern),
		})
	}

	q = q.OrderBy("created_at ASC", "id ASC")
	if query.Limit > 0 {
		q = q.Limit(uint64(query.Limit))
	}
	return r.queryExperts(ctx, q)
}

func (r *SQLRepository) queryProblems(ctx context.Context, q sq.SelectBuilder) ([]domain.Problem, error) {
	if r.db == nil {
		return []domain.Problem{}, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build problem query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer rows.Close()

	problems := make([]domain.Problem, 0)
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return problems, nil
}

func (r *SQLRepository) queryExperts(ctx context.Context, q sq.SelectBuilder) ([]domain.Expert, error) {
	if r.db == nil {
		return []domain.Expert{}, nil
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expert query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query experts: %w", err)
	}
	defer rows.Close()

	experts := make([]domain.Expert, 0)
	for rows.Next() {
		var (
			e         domain.Expert
			expertise string
			created   int64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Affiliation, &expertise, &e.Description, &e.Contact, &created); err != nil {
			return nil, fmt.Errorf("scan expert: %w", err)
		}
		if err := json.Unmarshal([]byte(expertise), &e.Expertise); err != nil {
			return nil, fmt.Errorf("decode expertise of %s: %w", e.ID, err)
		}
		e.CreatedAt = time.UnixMilli(created).UTC()
		experts = append(experts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return experts, nil
}

func scanProblem(rows *sql.Rows) (domain.Problem, error) {
	var (
		p          domain.Problem
		origin     string
		externalID sql.NullString
		summary    sql.NullString
		keywords   sql.NullString
		category   sql.NullString
		created    int64
	)
	err := rows.Scan(&p.ID, &origin, &p.Channel, &p.Author, &p.AuthorReputation, &externalID,
		&p.Text, &summary, &keywords, &category, &p.Popularity, &p.Enriched, &created)
	if err != nil {
		return domain.Problem{}, fmt.Errorf("scan problem: %w", err)
	}

	p.Origin = domain.Origin(origin)
	p.ExternalID = externalID.String
	p.CreatedAt = time.UnixMilli(created).UTC()
	if summary.Valid {
		s := summary.String
		p.Summary = &s
	}
	if category.Valid {
		c := domain.Category(category.String)
		p.Category = &c
	}
	if keywords.Valid {
		if err := json.Unmarshal([]byte(keywords.String), &p.Keywords); err != nil {
			return domain.Problem{}, fmt.Errorf("decode keywords of %s: %w", p.ID, err)
		}
		if p.Keywords == nil {
			p.Keywords = []string{}
		}
	}
	return p, nil
}

func encodeList(values []string) (sql.NullString, error) {
	if values == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode list: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func categoryValue(c *domain.Category) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}
