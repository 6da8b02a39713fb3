package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

func (s *SQLStore) PutPaper(ctx context.Context, p Paper) (Paper, error) {
	qj, err := json.Marshal(p.Questions)
	if err != nil {
		return Paper{}, err
	}
	row := s.db.QueryRowContext(ctx, `INSERT INTO papers (id,title,category,duration_min,total_questions,version,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,1,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, category=EXCLUDED.category,
			duration_min=EXCLUDED.duration_min, total_questions=EXCLUDED.total_questions,
			questions_json=EXCLUDED.questions_json, version=papers.version+1
		RETURNING version, created_at`,
		p.ID, p.Title, string(p.Category), p.DurationMin, p.TotalQuestions, string(qj), s.now().Unix())
	if err := row.Scan(&p.Version, &p.CreatedAt); err != nil {
		return Paper{}, err
	}
	return p, nil
}

func (s *SQLStore) GetPaper(ctx context.Context, id string) (Paper, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,category,duration_min,total_questions,version,questions_json,created_at
		FROM papers WHERE id=$1`, id)
	var p Paper
	var cat, qjson string
	if err := row.Scan(&p.ID, &p.Title, &cat, &p.DurationMin, &p.TotalQuestions, &p.Version, &qjson, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Paper{}, fmt.Errorf("%w: paper %s", ErrNotFound, id)
		}
		return Paper{}, err
	}
	p.Category = Category(cat)
	if err := json.Unmarshal([]byte(qjson), &p.Questions); err != nil {
		return Paper{}, fmt.Errorf("paper %s: questions: %w", id, err)
	}
	return p, nil
}

func (s *SQLStore) ListPapers(ctx context.Context, opts ListOpts) ([]PaperSummary, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(opts.Q); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		where = append(where, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	if opts.Category != "" {
		args = append(args, string(opts.Category))
		where = append(where, fmt.Sprintf("category=$%d", len(args)))
	}
	query := `SELECT id,title,category,duration_min,total_questions,version,questions_json FROM papers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	query, args = withPage(query, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PaperSummary, 0)
	for rows.Next() {
		var p Paper
		var cat, qjson string
		if err := rows.Scan(&p.ID, &p.Title, &cat, &p.DurationMin, &p.TotalQuestions, &p.Version, &qjson); err != nil {
			return nil, err
		}
		p.Category = Category(cat)
		if p.TotalQuestions == 0 {
			if err := json.Unmarshal([]byte(qjson), &p.Questions); err != nil {
				return nil, fmt.Errorf("paper %s: questions: %w", p.ID, err)
			}
		}
		out = append(out, summarize(p))
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendResult(ctx context.Context, r Result) error {
	pq, err := json.Marshal(r.PerQuestion)
	if err != nil {
		return err
	}
	sb, err := json.Marshal(r.SubjectBreakdown)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO results
		(id,user_phone,paper_id,paper_title,paper_version,total,answered_count,unanswered_count,
		 correct_count,wrong_count,percent,per_question_json,subject_breakdown_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		r.ID, r.UserPhone, r.PaperID, r.PaperTitle, r.PaperVersion, r.Total, r.AnsweredCount, r.UnansweredCount,
		r.CorrectCount, r.WrongCount, r.Percent, string(pq), string(sb), r.CreatedAt.UnixMilli())
	return err
}

const resultColumns = `id,user_phone,paper_id,paper_title,paper_version,total,answered_count,unanswered_count,
	correct_count,wrong_count,percent,per_question_json,subject_breakdown_json,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(sc rowScanner) (Result, error) {
	var r Result
	var pq, sb string
	var created int64
	if err := sc.Scan(&r.ID, &r.UserPhone, &r.PaperID, &r.PaperTitle, &r.PaperVersion, &r.Total,
		&r.AnsweredCount, &r.UnansweredCount, &r.CorrectCount, &r.WrongCount, &r.Percent, &pq, &sb, &created); err != nil {
		return Result{}, err
	}
	if err := json.Unmarshal([]byte(pq), &r.PerQuestion); err != nil {
		return Result{}, fmt.Errorf("result %s: per_question: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(sb), &r.SubjectBreakdown); err != nil {
		return Result{}, fmt.Errorf("result %s: subject_breakdown: %w", r.ID, err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	return r, nil
}

func (s *SQLStore) GetResult(ctx context.Context, id string) (Result, error) {
	r, err := scanResult(s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, fmt.Errorf("%w: result %s", ErrNotFound, id)
		}
		return Result{}, err
	}
	return r, nil
}

func (s *SQLStore) ListResults(ctx context.Context, opts ResultListOpts) ([]Result, error) {
	var (
		where []string
		args  []any
	)
	if opts.PaperID != "" {
		args = append(args, opts.PaperID)
		where = append(where, fmt.Sprintf("paper_id=$%d", len(args)))
	}
	if opts.UserPhone != "" {
		args = append(args, opts.UserPhone)
		where = append(where, fmt.Sprintf("user_phone=$%d", len(args)))
	}
	query := `SELECT ` + resultColumns + ` FROM results`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = withPage(query, args, opts.Limit, opts.Offset)
	return s.queryResults(ctx, query, args...)
}

func (s *SQLStore) ListResultsForPaper(ctx context.Context, paperID string) ([]Result, error) {
	return s.queryResults(ctx, `SELECT `+resultColumns+` FROM results WHERE paper_id=$1 ORDER BY created_at, id`, paperID)
}

func (s *SQLStore) queryResults(ctx context.Context, query string, args ...any) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Result, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) PaperIDsWithResults(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT paper_id FROM results ORDER BY paper_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// UpsertRankEntries writes the ranking snapshot in one transaction; the last
// writer for a (paper, learner) pair wins.
func (s *SQLStore) UpsertRankEntries(ctx context.Context, paperID string, entries []RankEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO rank_entries (paper_id,user_phone,rank,total_participants,score,computed_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (paper_id,user_phone) DO UPDATE SET rank=EXCLUDED.rank,
				total_participants=EXCLUDED.total_participants, score=EXCLUDED.score, computed_at=EXCLUDED.computed_at`,
			paperID, e.UserPhone, e.Rank, e.TotalParticipants, e.Score, e.ComputedAt.UnixMilli()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ListRankEntries(ctx context.Context, paperID string) ([]RankEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT paper_id,user_phone,rank,total_participants,score,computed_at
		FROM rank_entries WHERE paper_id=$1 ORDER BY rank, user_phone`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]RankEntry, 0)
	for rows.Next() {
		var e RankEntry
		var computed int64
		if err := rows.Scan(&e.PaperID, &e.UserPhone, &e.Rank, &e.TotalParticipants, &e.Score, &computed); err != nil {
			return nil, err
		}
		e.ComputedAt = time.UnixMilli(computed).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func withPage(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		if offset > 0 {
			args = append(args, offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}
	return query, args
}
