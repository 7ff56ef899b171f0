package postgres

import (
	"context"
	"fmt"

	"quiz-admin-service/internal/domain"

	"github.com/uptrace/bun"
)

// AnswerStore persists answer rows. Upsert relies on the composite
// primary key (attempt_id, question_id): repeated or concurrent
// submissions of the same answer are last-write-wins.
type AnswerStore struct {
	db *bun.DB
}

func NewAnswerStore(db *bun.DB) *AnswerStore {
	return &AnswerStore{db: db}
}

func (s *AnswerStore) Upsert(ctx context.Context, rec *domain.AnswerRecord) error {
	_, err := s.db.NewInsert().Model(rec).
		On("CONFLICT (attempt_id, question_id) DO UPDATE").
		Set("answer = EXCLUDED.answer").
		Set("is_correct = EXCLUDED.is_correct").
		Set("points_earned = EXCLUDED.points_earned").
		Set("time_spent_s = EXCLUDED.time_spent_s").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// ListByAttempt joins answers with their questions for the detail view.
func (s *AnswerStore) ListByAttempt(ctx context.Context, attemptID string) ([]domain.AnswerDetail, error) {
	details := []domain.AnswerDetail{}
	err := s.db.NewSelect().
		Model((*domain.AnswerRecord)(nil)).
		ColumnExpr("ans.*").
		ColumnExpr("COALESCE(q.question, '') AS question_text").
		ColumnExpr("q.payload AS payload").
		ColumnExpr("COALESCE(q.points, 0) AS points").
		ColumnExpr("COALESCE(q.explanation, '') AS explanation").
		Join("LEFT JOIN questions AS q ON q.id = ans.question_id").
		Where("ans.attempt_id = ?", attemptID).
		Order("ans.question_id").
		Scan(ctx, &details)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return details, nil
}
