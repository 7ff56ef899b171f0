package app

import (
	"context"
	"errors"
	"log"
	"time"

	"quiz-admin-service/internal/domain"

	"github.com/google/uuid"
)

// CertificateStore abstracts durable certificate rows. InsertIgnore must
// be a no-op when a row already exists for (user, quiz); that constraint
// is the idempotency boundary of the whole pipeline.
type CertificateStore interface {
	InsertIgnore(ctx context.Context, cert *domain.Certificate) error
	GetByUserQuiz(ctx context.Context, userID, quizID string) (*domain.Certificate, error)
	Delete(ctx context.Context, id string) error
}

// SettingsSource resolves per-quiz certificate settings (usually cached).
type SettingsSource interface {
	CertificateSettings(ctx context.Context, quizID string) (domain.CertificateSettings, error)
}

// RecipientSource resolves the email address and display name of a user.
type RecipientSource interface {
	Recipient(ctx context.Context, userID string) (domain.Recipient, error)
}

// CertificateEmail is the payload handed to the notifier. ScorePct is a
// pointer so a missing score can render as a placeholder.
type CertificateEmail struct {
	To            string
	Name          string
	QuizTitle     string
	ScorePct      *float64
	CertificateID string
	IssuedAt      time.Time
	PrimaryColor  string
}

// Notifier submits a certificate email for delivery. Implementations must
// return immediately; delivery happens off the caller's path and its
// outcome is never reported back.
type Notifier interface {
	Notify(email CertificateEmail)
}

// CertificateIssuer decides whether a submitted attempt mints a
// certificate and performs the idempotent insert. It is invoked only from
// UpdateAttempt, never by external callers.
type CertificateIssuer struct {
	certs    CertificateStore
	settings SettingsSource
	users    RecipientSource
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

func NewCertificateIssuer(certs CertificateStore, settings SettingsSource, users RecipientSource, notifier Notifier) *CertificateIssuer {
	return &CertificateIssuer{
		certs:    certs,
		settings: settings,
		users:    users,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithClock is test-only for deterministic issuance dates.
func (i *CertificateIssuer) WithClock(now func() time.Time) *CertificateIssuer {
	i.now = now
	return i
}

// IssueForAttempt runs the issuance algorithm for a submitted, passed
// attempt and returns the canonical certificate for (user, quiz), or nil
// when certificates are disabled or anything in the chain fails. It never
// returns an error: the attempt patch that triggered it already succeeded
// and certificate trouble must not surface to that caller.
func (i *CertificateIssuer) IssueForAttempt(ctx context.Context, attempt *domain.Attempt) *domain.Certificate {
	settings, err := i.settings.CertificateSettings(ctx, attempt.QuizID)
	if err != nil {
		log.Printf("certificate settings lookup failed for quiz %s: %v", attempt.QuizID, err)
		return nil
	}
	if !settings.Enabled {
		return nil
	}

	tmpl := domain.ParseTemplate(settings.TemplateRaw)
	issuedAt := i.now()
	cert := &domain.Certificate{
		ID:        i.newID(),
		UserID:    attempt.UserID,
		QuizID:    attempt.QuizID,
		AttemptID: attempt.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: tmpl.ExpiresAt(issuedAt),
	}
	if err := i.certs.InsertIgnore(ctx, cert); err != nil {
		log.Printf("certificate insert failed for user %s quiz %s: %v", attempt.UserID, attempt.QuizID, err)
		return nil
	}

	// Re-read the canonical row: if a concurrent qualifying submission won
	// the insert race, that row is the one every caller must observe.
	canonical, err := i.certs.GetByUserQuiz(ctx, attempt.UserID, attempt.QuizID)
	if err != nil {
		if !errors.Is(err, domain.ErrCertificateNotFound) {
			log.Printf("certificate re-read failed for user %s quiz %s: %v", attempt.UserID, attempt.QuizID, err)
		}
		return nil
	}

	if tmpl.AutoEmail {
		i.dispatchEmail(ctx, attempt, canonical, settings, tmpl)
	}
	return canonical
}

func (i *CertificateIssuer) dispatchEmail(ctx context.Context, attempt *domain.Attempt, cert *domain.Certificate, settings domain.CertificateSettings, tmpl domain.CertificateTemplate) {
	recipient, err := i.users.Recipient(ctx, attempt.UserID)
	if err != nil {
		log.Printf("certificate email skipped, recipient lookup failed for user %s: %v", attempt.UserID, err)
		return
	}
	score := attempt.ScorePct
	i.notifier.Notify(CertificateEmail{
		To:            recipient.Email,
		Name:          recipient.Name,
		QuizTitle:     settings.QuizTitle,
		ScorePct:      &score,
		CertificateID: cert.ID,
		IssuedAt:      cert.IssuedAt,
		PrimaryColor:  tmpl.PrimaryColor,
	})
}
