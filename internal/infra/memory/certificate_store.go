package memory

import (
	"context"
	"sync"

	"quiz-admin-service/internal/domain"
)

// CertificateStore is an in-memory implementation of app.CertificateStore.
// The (user, quiz) map key stands in for the SQL unique constraint, so
// InsertIgnore is a no-op when a certificate already exists.
type CertificateStore struct {
	mu    sync.Mutex
	certs map[string]domain.Certificate
}

func NewCertificateStore() *CertificateStore {
	return &CertificateStore{certs: make(map[string]domain.Certificate)}
}

func key(userID, quizID string) string {
	return userID + "/" + quizID
}

func (s *CertificateStore) InsertIgnore(_ context.Context, cert *domain.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(cert.UserID, cert.QuizID)
	if _, ok := s.certs[k]; ok {
		return nil
	}
	s.certs[k] = *cert
	return nil
}

func (s *CertificateStore) GetByUserQuiz(_ context.Context, userID, quizID string) (*domain.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certs[key(userID, quizID)]
	if !ok {
		return nil, domain.ErrCertificateNotFound
	}
	return &cert, nil
}

func (s *CertificateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, cert := range s.certs {
		if cert.ID == id {
			delete(s.certs, k)
			return nil
		}
	}
	return nil
}
