package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quiz-admin-service/internal/domain"

	"github.com/uptrace/bun"
)

// CertificateStore persists certificate rows. The UNIQUE (user_id,
// quiz_id) constraint plus insert-or-ignore makes concurrent qualifying
// submissions race-safe: exactly one row ever exists per pair.
type CertificateStore struct {
	db *bun.DB
}

func NewCertificateStore(db *bun.DB) *CertificateStore {
	return &CertificateStore{db: db}
}

func (s *CertificateStore) InsertIgnore(ctx context.Context, cert *domain.Certificate) error {
	_, err := s.db.NewInsert().Model(cert).
		On("CONFLICT (user_id, quiz_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *CertificateStore) GetByUserQuiz(ctx context.Context, userID, quizID string) (*domain.Certificate, error) {
	cert := new(domain.Certificate)
	err := s.db.NewSelect().Model(cert).
		Where("c.user_id = ?", userID).
		Where("c.quiz_id = ?", quizID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("select certificate: %w", err)
	}
	return cert, nil
}

// Delete revokes a certificate. No cascading effects on the attempt.
func (s *CertificateStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*domain.Certificate)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	return nil
}
