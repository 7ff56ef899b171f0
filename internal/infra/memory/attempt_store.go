package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-admin-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore,
// used in tests and when no Postgres URL is configured.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func (s *AttemptStore) Create(_ context.Context, attempt *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = *attempt
	return nil
}

func (s *AttemptStore) Get(_ context.Context, id string) (*domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return &attempt, nil
}

func (s *AttemptStore) Patch(_ context.Context, id string, fields map[string]any) (*domain.Attempt, error) {
	if len(fields) == 0 {
		return nil, domain.ErrEmptyPatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	for col, val := range fields {
		applyField(&attempt, col, val)
	}
	s.attempts[id] = attempt
	return &attempt, nil
}

// applyField mirrors the column names the SQL store patches.
func applyField(a *domain.Attempt, col string, val any) {
	switch col {
	case "status":
		a.Status, _ = val.(string)
	case "submitted_at":
		if t, ok := val.(time.Time); ok {
			a.SubmittedAt = &t
		}
	case "time_taken_s":
		a.TimeTakenS, _ = val.(int)
	case "score_pct":
		a.ScorePct, _ = val.(float64)
	case "points_earned":
		a.PointsEarned, _ = val.(float64)
	case "total_points":
		a.TotalPoints, _ = val.(float64)
	case "passed":
		a.Passed, _ = val.(bool)
	case "tab_switches":
		a.TabSwitches, _ = val.(int)
	case "flagged":
		a.Flagged, _ = val.(bool)
	case "flag_reason":
		a.FlagReason, _ = val.(string)
	}
}

func (s *AttemptStore) List(_ context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Attempt{}
	for _, attempt := range s.attempts {
		if attempt.Status != domain.StatusSubmitted && attempt.Status != domain.StatusGraded {
			continue
		}
		if filter.QuizID != "" && attempt.QuizID != filter.QuizID {
			continue
		}
		if filter.UserID != "" && attempt.UserID != filter.UserID {
			continue
		}
		if filter.Flagged != nil && attempt.Flagged != *filter.Flagged {
			continue
		}
		out = append(out, attempt)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := submittedOrStarted(out[i]), submittedOrStarted(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func submittedOrStarted(a domain.Attempt) time.Time {
	if a.SubmittedAt != nil {
		return *a.SubmittedAt
	}
	return a.StartedAt
}

func (s *AttemptStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, id)
	return nil
}
