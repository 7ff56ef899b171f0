package memory

import (
	"context"
	"time"

	"quiz-admin-service/internal/domain"
)

// Profile is the minimal user surface the analytics side counts.
type Profile struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// QuizInfo is the quiz surface the analytics side reads.
type QuizInfo struct {
	ID        string
	Title     string
	Published bool
}

// AnalyticsStore implements app.AnalyticsStore over the in-memory stores,
// plus static profile and quiz data.
type AnalyticsStore struct {
	attempts *AttemptStore
	answers  *AnswerStore
	profiles []Profile
	quizzes  map[string]QuizInfo
}

func NewAnalyticsStore(attempts *AttemptStore, answers *AnswerStore) *AnalyticsStore {
	return &AnalyticsStore{
		attempts: attempts,
		answers:  answers,
		quizzes:  make(map[string]QuizInfo),
	}
}

func (s *AnalyticsStore) AddProfile(p Profile) {
	s.profiles = append(s.profiles, p)
}

func (s *AnalyticsStore) AddQuiz(q QuizInfo) {
	s.quizzes[q.ID] = q
}

func qualifying(status string) bool {
	return status == domain.StatusSubmitted || status == domain.StatusGraded
}

func (s *AnalyticsStore) AttemptFacts(_ context.Context, quizID string, since time.Time) ([]domain.AttemptFact, error) {
	s.attempts.mu.RLock()
	defer s.attempts.mu.RUnlock()

	facts := []domain.AttemptFact{}
	for _, a := range s.attempts.attempts {
		if !qualifying(a.Status) {
			continue
		}
		if quizID != "" && a.QuizID != quizID {
			continue
		}
		at := submittedOrStarted(a)
		if !since.IsZero() && at.Before(since) {
			continue
		}
		facts = append(facts, domain.AttemptFact{
			QuizID:      a.QuizID,
			UserID:      a.UserID,
			ScorePct:    a.ScorePct,
			Passed:      a.Passed,
			TimeTakenS:  a.TimeTakenS,
			SubmittedAt: at,
		})
	}
	return facts, nil
}

func (s *AnalyticsStore) AnswerFacts(_ context.Context, quizID string) ([]domain.AnswerFact, error) {
	s.attempts.mu.RLock()
	attemptQuiz := map[string]string{}
	for id, a := range s.attempts.attempts {
		if qualifying(a.Status) {
			attemptQuiz[id] = a.QuizID
		}
	}
	s.attempts.mu.RUnlock()

	s.answers.mu.RLock()
	defer s.answers.mu.RUnlock()

	facts := []domain.AnswerFact{}
	for _, rec := range s.answers.answers {
		qid, ok := attemptQuiz[rec.AttemptID]
		if !ok {
			continue
		}
		if quizID != "" && qid != quizID {
			continue
		}
		facts = append(facts, domain.AnswerFact{
			QuestionID: rec.QuestionID,
			IsCorrect:  rec.IsCorrect,
			TimeSpentS: rec.TimeSpentS,
		})
	}
	return facts, nil
}

func (s *AnalyticsStore) CountUsers(_ context.Context) (int, error) {
	return len(s.profiles), nil
}

func (s *AnalyticsStore) CountPublishedQuizzes(_ context.Context) (int, error) {
	n := 0
	for _, q := range s.quizzes {
		if q.Published {
			n++
		}
	}
	return n, nil
}

func (s *AnalyticsStore) SignupDates(_ context.Context) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(s.profiles))
	for _, p := range s.profiles {
		dates = append(dates, p.CreatedAt)
	}
	return dates, nil
}

func (s *AnalyticsStore) QuizTitles(_ context.Context, ids []string) (map[string]string, error) {
	titles := map[string]string{}
	for _, id := range ids {
		if q, ok := s.quizzes[id]; ok {
			titles[id] = q.Title
		}
	}
	return titles, nil
}
