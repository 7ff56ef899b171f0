package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quiz-admin-service/internal/domain"

	"github.com/uptrace/bun"
)

// AttemptStore persists attempt rows with bun.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) Create(ctx context.Context, attempt *domain.Attempt) error {
	if _, err := s.db.NewInsert().Model(attempt).Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Get(ctx context.Context, id string) (*domain.Attempt, error) {
	attempt := new(domain.Attempt)
	err := s.db.NewSelect().Model(attempt).Where("a.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("select attempt: %w", err)
	}
	return attempt, nil
}

// Patch applies only the given columns. Callers whitelist field names
// before reaching this point; the store trusts the map keys as columns.
func (s *AttemptStore) Patch(ctx context.Context, id string, fields map[string]any) (*domain.Attempt, error) {
	if len(fields) == 0 {
		return nil, domain.ErrEmptyPatch
	}
	q := s.db.NewUpdate().Model((*domain.Attempt)(nil)).Where("id = ?", id)
	for col, val := range fields {
		q = q.Set("? = ?", bun.Ident(col), val)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("patch attempt: %w", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, domain.ErrAttemptNotFound
	}
	return s.Get(ctx, id)
}

// List returns submitted and graded attempts, newest submission first.
func (s *AttemptStore) List(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	attempts := []domain.Attempt{}
	q := s.db.NewSelect().Model(&attempts).
		Where("a.status IN (?)", bun.In([]string{domain.StatusSubmitted, domain.StatusGraded})).
		OrderExpr("a.submitted_at DESC NULLS LAST")
	if filter.QuizID != "" {
		q = q.Where("a.quiz_id = ?", filter.QuizID)
	}
	if filter.UserID != "" {
		q = q.Where("a.user_id = ?", filter.UserID)
	}
	if filter.Flagged != nil {
		q = q.Where("a.flagged = ?", *filter.Flagged)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}

func (s *AttemptStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*domain.Attempt)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete attempt: %w", err)
	}
	return nil
}
