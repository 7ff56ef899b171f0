package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quiz-admin-service/internal/domain"

	"github.com/uptrace/bun"
)

// QuizStore reads the collaborator surface of quiz rows: the certificate
// flag and template blob. It backs the settings cache as its loader.
type QuizStore struct {
	db *bun.DB
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) CertificateSettings(ctx context.Context, quizID string) (domain.CertificateSettings, error) {
	settings := domain.CertificateSettings{QuizID: quizID}
	err := s.db.QueryRowContext(ctx,
		`SELECT title, certificate_enabled, COALESCE(certificate_template, '') FROM quizzes WHERE id = ?`,
		quizID,
	).Scan(&settings.QuizTitle, &settings.Enabled, &settings.TemplateRaw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CertificateSettings{}, domain.ErrQuizNotFound
		}
		return domain.CertificateSettings{}, fmt.Errorf("select quiz settings: %w", err)
	}
	return settings, nil
}

// UserStore resolves notification recipients from profile rows.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Recipient(ctx context.Context, userID string) (domain.Recipient, error) {
	r := domain.Recipient{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT email, COALESCE(full_name, '') FROM profiles WHERE id = ?`,
		userID,
	).Scan(&r.Email, &r.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Recipient{}, domain.ErrUserNotFound
		}
		return domain.Recipient{}, fmt.Errorf("select recipient: %w", err)
	}
	return r, nil
}
