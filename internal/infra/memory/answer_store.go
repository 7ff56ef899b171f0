package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"quiz-admin-service/internal/domain"
)

// Question is the display surface joined onto answers in the detail view.
type Question struct {
	ID          string
	Text        string
	Payload     json.RawMessage
	Points      float64
	Explanation string
}

// AnswerStore is an in-memory implementation of app.AnswerStore. Upserts
// are keyed by (attempt, question), matching the SQL composite key.
type AnswerStore struct {
	mu        sync.RWMutex
	answers   map[string]domain.AnswerRecord
	questions map[string]Question
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{
		answers:   make(map[string]domain.AnswerRecord),
		questions: make(map[string]Question),
	}
}

// AddQuestion seeds question display data for joins.
func (s *AnswerStore) AddQuestion(q Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
}

func (s *AnswerStore) Upsert(_ context.Context, rec *domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[rec.AttemptID+"/"+rec.QuestionID] = *rec
	return nil
}

func (s *AnswerStore) ListByAttempt(_ context.Context, attemptID string) ([]domain.AnswerDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	details := []domain.AnswerDetail{}
	for _, rec := range s.answers {
		if rec.AttemptID != attemptID {
			continue
		}
		detail := domain.AnswerDetail{AnswerRecord: rec}
		if q, ok := s.questions[rec.QuestionID]; ok {
			detail.QuestionText = q.Text
			detail.Payload = q.Payload
			detail.Points = q.Points
			detail.Explanation = q.Explanation
		}
		details = append(details, detail)
	}
	sort.Slice(details, func(i, j int) bool {
		return details[i].QuestionID < details[j].QuestionID
	})
	return details, nil
}
