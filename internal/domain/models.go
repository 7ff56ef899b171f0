package domain

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Attempt statuses. Created attempts start in progress; callers move them
// forward through an explicit patch. Regressions are accepted as
// administrative corrections, see app.LifecycleService.
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusGraded     = "graded"
)

// Attempt is one quiz-taking session.
type Attempt struct {
	bun.BaseModel `bun:"table:attempts,alias:a" json:"-"`

	ID            string     `bun:"id,pk" json:"id"`
	QuizID        string     `bun:"quiz_id,notnull" json:"quizId"`
	UserID        string     `bun:"user_id,notnull" json:"userId"`
	AttemptNumber int        `bun:"attempt_number,notnull" json:"attemptNumber"`
	Status        string     `bun:"status,notnull" json:"status"`
	ScorePct      float64    `bun:"score_pct" json:"scorePct"`
	PointsEarned  float64    `bun:"points_earned" json:"pointsEarned"`
	TotalPoints   float64    `bun:"total_points" json:"totalPoints"`
	Passed        bool       `bun:"passed" json:"passed"`
	TimeTakenS    int        `bun:"time_taken_s" json:"timeTakenS"`
	TabSwitches   int        `bun:"tab_switches" json:"tabSwitches"`
	Flagged       bool       `bun:"flagged" json:"flagged"`
	FlagReason    string     `bun:"flag_reason" json:"flagReason"`
	StartedAt     time.Time  `bun:"started_at,notnull" json:"startedAt"`
	SubmittedAt   *time.Time `bun:"submitted_at" json:"submittedAt"`
}

// AnswerRecord is one response to one question within one attempt.
// The (attempt_id, question_id) pair is unique; repeated submissions
// update the existing row.
type AnswerRecord struct {
	bun.BaseModel `bun:"table:answers,alias:ans" json:"-"`

	AttemptID    string          `bun:"attempt_id,pk" json:"attemptId"`
	QuestionID   string          `bun:"question_id,pk" json:"questionId"`
	Answer       json.RawMessage `bun:"answer,type:jsonb" json:"answer"`
	IsCorrect    *bool           `bun:"is_correct" json:"isCorrect"`
	PointsEarned float64         `bun:"points_earned" json:"pointsEarned"`
	TimeSpentS   int             `bun:"time_spent_s" json:"timeSpentS"`
}

// AnswerDetail is an AnswerRecord joined with its question for display.
type AnswerDetail struct {
	AnswerRecord
	QuestionText string          `json:"questionText"`
	Payload      json.RawMessage `json:"payload"`
	Points       float64         `json:"points"`
	Explanation  string          `json:"explanation"`
}

// Certificate is proof of quiz completion. A user holds at most one
// certificate per quiz regardless of attempt count.
type Certificate struct {
	bun.BaseModel `bun:"table:certificates,alias:c" json:"-"`

	ID        string     `bun:"id,pk" json:"id"`
	UserID    string     `bun:"user_id,notnull" json:"userId"`
	QuizID    string     `bun:"quiz_id,notnull" json:"quizId"`
	AttemptID string     `bun:"attempt_id,notnull" json:"attemptId"`
	IssuedAt  time.Time  `bun:"issued_at,notnull" json:"issuedAt"`
	ExpiresAt *time.Time `bun:"expires_at" json:"expiresAt"`
}

// CertificateSettings is the per-quiz issuance surface the issuer reads:
// the enabled flag plus the raw template blob stored on the quiz row.
type CertificateSettings struct {
	QuizID      string
	QuizTitle   string
	Enabled     bool
	TemplateRaw string
}

// Recipient is the minimal user surface needed to address an email.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// AttemptFilter narrows result listings. Zero values mean "no filter";
// Flagged uses a pointer so false is a real filter value.
type AttemptFilter struct {
	QuizID  string
	UserID  string
	Flagged *bool
	Limit   int
}

// AttemptEvent is broadcast when an attempt transitions to submitted.
type AttemptEvent struct {
	AttemptID         string     `json:"attemptId"`
	QuizID            string     `json:"quizId"`
	UserID            string     `json:"userId"`
	ScorePct          float64    `json:"scorePct"`
	Passed            bool       `json:"passed"`
	CertificateIssued bool       `json:"certificateIssued"`
	SubmittedAt       *time.Time `json:"submittedAt"`
}
