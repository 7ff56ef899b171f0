package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quiz-admin-service/internal/domain"

	"github.com/google/uuid"
)

// AttemptStore abstracts durable attempt rows (Postgres, in-memory, etc).
type AttemptStore interface {
	Create(ctx context.Context, attempt *domain.Attempt) error
	Get(ctx context.Context, id string) (*domain.Attempt, error)
	Patch(ctx context.Context, id string, fields map[string]any) (*domain.Attempt, error)
	List(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error)
	Delete(ctx context.Context, id string) error
}

// AnswerStore abstracts answer upserts keyed by (attempt, question).
type AnswerStore interface {
	Upsert(ctx context.Context, rec *domain.AnswerRecord) error
	ListByAttempt(ctx context.Context, attemptID string) ([]domain.AnswerDetail, error)
}

// CreateAttemptInput carries caller-supplied creation fields. Zero values
// take defaults: attempt number 1, status in_progress, started now.
type CreateAttemptInput struct {
	QuizID        string     `json:"quizId"`
	UserID        string     `json:"userId"`
	AttemptNumber int        `json:"attemptNumber"`
	Status        string     `json:"status"`
	StartedAt     *time.Time `json:"startedAt"`
}

// AnswerInput is one element of an answer submission list.
type AnswerInput struct {
	QuestionID   string          `json:"questionId"`
	Answer       json.RawMessage `json:"answer"`
	IsCorrect    *bool           `json:"isCorrect"`
	PointsEarned float64         `json:"pointsEarned"`
	TimeSpentS   int             `json:"timeSpentS"`
}

// AttemptPatch is the whitelisted partial update for an attempt. Fields
// outside this struct are never written, whatever the request carries.
type AttemptPatch struct {
	Status       *string    `json:"status"`
	SubmittedAt  *time.Time `json:"submittedAt"`
	TimeTakenS   *int       `json:"timeTakenS"`
	ScorePct     *float64   `json:"scorePct"`
	PointsEarned *float64   `json:"pointsEarned"`
	TotalPoints  *float64   `json:"totalPoints"`
	Passed       *bool      `json:"passed"`
	TabSwitches  *int       `json:"tabSwitches"`
	Flagged      *bool      `json:"flagged"`
	FlagReason   *string    `json:"flagReason"`
}

// Fields maps the set columns to their values; empty map means the patch
// carried nothing updatable.
func (p AttemptPatch) Fields() map[string]any {
	fields := map[string]any{}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.SubmittedAt != nil {
		fields["submitted_at"] = *p.SubmittedAt
	}
	if p.TimeTakenS != nil {
		fields["time_taken_s"] = *p.TimeTakenS
	}
	if p.ScorePct != nil {
		fields["score_pct"] = *p.ScorePct
	}
	if p.PointsEarned != nil {
		fields["points_earned"] = *p.PointsEarned
	}
	if p.TotalPoints != nil {
		fields["total_points"] = *p.TotalPoints
	}
	if p.Passed != nil {
		fields["passed"] = *p.Passed
	}
	if p.TabSwitches != nil {
		fields["tab_switches"] = *p.TabSwitches
	}
	if p.Flagged != nil {
		fields["flagged"] = *p.Flagged
	}
	if p.FlagReason != nil {
		fields["flag_reason"] = *p.FlagReason
	}
	return fields
}

// AttemptDetail joins an attempt with its answers for the read path.
type AttemptDetail struct {
	Attempt *domain.Attempt       `json:"attempt"`
	Answers []domain.AnswerDetail `json:"answers"`
}

// LifecycleService orchestrates attempt creation, answer recording, and
// the submission side effects (certificate issuance, event publication).
type LifecycleService struct {
	attempts AttemptStore
	answers  AnswerStore
	issuer   *CertificateIssuer
	bus      *EventBus
	now      func() time.Time
	newID    func() string
}

func NewLifecycleService(attempts AttemptStore, answers AnswerStore, issuer *CertificateIssuer, bus *EventBus) *LifecycleService {
	return &LifecycleService{
		attempts: attempts,
		answers:  answers,
		issuer:   issuer,
		bus:      bus,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *LifecycleService) WithClock(now func() time.Time) *LifecycleService {
	s.now = now
	return s
}

// CreateAttempt inserts a new attempt row. There is deliberately no
// uniqueness check against existing attempts: concurrent attempts for the
// same (user, quiz) are permitted, that is how retakes work.
func (s *LifecycleService) CreateAttempt(ctx context.Context, in CreateAttemptInput) (*domain.Attempt, error) {
	attempt := &domain.Attempt{
		ID:            s.newID(),
		QuizID:        in.QuizID,
		UserID:        in.UserID,
		AttemptNumber: in.AttemptNumber,
		Status:        in.Status,
		StartedAt:     s.now(),
	}
	if attempt.AttemptNumber <= 0 {
		attempt.AttemptNumber = 1
	}
	if attempt.Status == "" {
		attempt.Status = domain.StatusInProgress
	}
	if in.StartedAt != nil {
		attempt.StartedAt = *in.StartedAt
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// RecordAnswers upserts one AnswerRecord per input element. An empty
// list is a valid no-op. There is no transaction across the list: a
// failure mid-list leaves earlier upserts committed, which callers retry
// safely because upserts are idempotent.
func (s *LifecycleService) RecordAnswers(ctx context.Context, attemptID string, answers []AnswerInput) error {
	for _, in := range answers {
		rec := &domain.AnswerRecord{
			AttemptID:    attemptID,
			QuestionID:   in.QuestionID,
			Answer:       in.Answer,
			IsCorrect:    in.IsCorrect,
			PointsEarned: in.PointsEarned,
			TimeSpentS:   in.TimeSpentS,
		}
		if err := s.answers.Upsert(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// UpdateAttempt applies a whitelisted patch and, when the patched row is
// submitted and passed, runs certificate issuance synchronously. The
// returned certificate is nil unless one exists for (user, quiz).
//
// Status values are accepted as-is, including regressions such as
// graded back to in_progress; admins use that for corrections.
func (s *LifecycleService) UpdateAttempt(ctx context.Context, attemptID string, patch AttemptPatch) (*domain.Attempt, *domain.Certificate, error) {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil, nil, domain.ErrEmptyPatch
	}
	if patch.Status != nil && *patch.Status == domain.StatusSubmitted && patch.SubmittedAt == nil {
		fields["submitted_at"] = s.now()
	}

	attempt, err := s.attempts.Patch(ctx, attemptID, fields)
	if err != nil {
		return nil, nil, err
	}

	var cert *domain.Certificate
	if attempt.Status == domain.StatusSubmitted && attempt.Passed {
		// Issuance failures degrade to a nil certificate; the patch above
		// already succeeded and must not be unwound.
		cert = s.issuer.IssueForAttempt(ctx, attempt)
	}

	if s.bus != nil && attempt.Status == domain.StatusSubmitted {
		s.bus.Publish(domain.AttemptEvent{
			AttemptID:         attempt.ID,
			QuizID:            attempt.QuizID,
			UserID:            attempt.UserID,
			ScorePct:          attempt.ScorePct,
			Passed:            attempt.Passed,
			CertificateIssued: cert != nil,
			SubmittedAt:       attempt.SubmittedAt,
		})
	}
	return attempt, cert, nil
}

// ListAttempts returns submitted and graded attempts, newest first.
func (s *LifecycleService) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	return s.attempts.List(ctx, filter)
}

// GetAttemptDetail returns the attempt joined with its answers, or a nil
// attempt when the id is unknown. Missing rows are not an error here.
func (s *LifecycleService) GetAttemptDetail(ctx context.Context, attemptID string) (AttemptDetail, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		if errors.Is(err, domain.ErrAttemptNotFound) {
			return AttemptDetail{Answers: []domain.AnswerDetail{}}, nil
		}
		return AttemptDetail{}, err
	}
	answers, err := s.answers.ListByAttempt(ctx, attemptID)
	if err != nil {
		return AttemptDetail{}, err
	}
	if answers == nil {
		answers = []domain.AnswerDetail{}
	}
	return AttemptDetail{Attempt: attempt, Answers: answers}, nil
}

func (s *LifecycleService) DeleteAttempt(ctx context.Context, attemptID string) error {
	return s.attempts.Delete(ctx, attemptID)
}
