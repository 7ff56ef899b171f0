package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-admin-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// AnalyticsStore serves the aggregator's raw read-side facts from its own
// pgx pool, keeping dashboard reads off the write-side bun handle.
type AnalyticsStore struct {
	pool *pgxpool.Pool
}

func NewAnalyticsStore(pool *pgxpool.Pool) *AnalyticsStore {
	return &AnalyticsStore{pool: pool}
}

const qualifyingStatuses = `('submitted', 'graded')`

func (s *AnalyticsStore) AttemptFacts(ctx context.Context, quizID string, since time.Time) ([]domain.AttemptFact, error) {
	query := `SELECT quiz_id, user_id, score_pct, passed, time_taken_s, COALESCE(submitted_at, started_at)
		FROM attempts WHERE status IN ` + qualifyingStatuses
	args := []any{}
	if quizID != "" {
		args = append(args, quizID)
		query += fmt.Sprintf(" AND quiz_id = $%d", len(args))
	}
	if !since.IsZero() {
		args = append(args, since)
		query += fmt.Sprintf(" AND COALESCE(submitted_at, started_at) >= $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attempt facts: %w", err)
	}
	defer rows.Close()

	facts := []domain.AttemptFact{}
	for rows.Next() {
		var f domain.AttemptFact
		if err := rows.Scan(&f.QuizID, &f.UserID, &f.ScorePct, &f.Passed, &f.TimeTakenS, &f.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan attempt fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *AnalyticsStore) AnswerFacts(ctx context.Context, quizID string) ([]domain.AnswerFact, error) {
	query := `SELECT ans.question_id, ans.is_correct, ans.time_spent_s
		FROM answers ans
		JOIN attempts a ON a.id = ans.attempt_id
		WHERE a.status IN ` + qualifyingStatuses
	args := []any{}
	if quizID != "" {
		args = append(args, quizID)
		query += fmt.Sprintf(" AND a.quiz_id = $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("answer facts: %w", err)
	}
	defer rows.Close()

	facts := []domain.AnswerFact{}
	for rows.Next() {
		var f domain.AnswerFact
		if err := rows.Scan(&f.QuestionID, &f.IsCorrect, &f.TimeSpentS); err != nil {
			return nil, fmt.Errorf("scan answer fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *AnalyticsStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *AnalyticsStore) CountPublishedQuizzes(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quizzes WHERE status = 'published'`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quizzes: %w", err)
	}
	return n, nil
}

func (s *AnalyticsStore) SignupDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `SELECT created_at FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("signup dates: %w", err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan signup date: %w", err)
		}
		dates = append(dates, t)
	}
	return dates, rows.Err()
}

func (s *AnalyticsStore) QuizTitles(ctx context.Context, ids []string) (map[string]string, error) {
	titles := map[string]string{}
	if len(ids) == 0 {
		return titles, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, title FROM quizzes WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("quiz titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan quiz title: %w", err)
		}
		titles[id] = title
	}
	return titles, rows.Err()
}
