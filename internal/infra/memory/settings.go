package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-admin-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// SettingsLoader fetches certificate settings from a backing store.
type SettingsLoader interface {
	CertificateSettings(ctx context.Context, quizID string) (domain.CertificateSettings, error)
}

// SettingsCache caches per-quiz certificate settings with a TTL to avoid
// repeated store hits on every submission.
type SettingsCache struct {
	loader SettingsLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSettings
}

type cachedSettings struct {
	settings  domain.CertificateSettings
	expiresAt time.Time
}

func NewSettingsCache(loader SettingsLoader, ttl time.Duration) *SettingsCache {
	return &SettingsCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSettings),
	}
}

func (c *SettingsCache) CertificateSettings(ctx context.Context, quizID string) (domain.CertificateSettings, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.settings, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.settings, nil
		}
		c.mu.RUnlock()

		settings, err := c.loader.CertificateSettings(ctx, quizID)
		if err != nil {
			return domain.CertificateSettings{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedSettings{
			settings:  settings,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return settings, nil
	})
	if err != nil {
		return domain.CertificateSettings{}, err
	}
	return result.(domain.CertificateSettings), nil
}

func (c *SettingsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticSettingsLoader serves settings from a fixed map (tests/demos).
type StaticSettingsLoader struct {
	settings map[string]domain.CertificateSettings
}

func NewStaticSettingsLoader(settings map[string]domain.CertificateSettings) *StaticSettingsLoader {
	return &StaticSettingsLoader{settings: settings}
}

func (l *StaticSettingsLoader) CertificateSettings(_ context.Context, quizID string) (domain.CertificateSettings, error) {
	if s, ok := l.settings[quizID]; ok {
		return s, nil
	}
	return domain.CertificateSettings{}, domain.ErrQuizNotFound
}

// StaticRecipients serves recipients from a fixed map (tests/demos).
type StaticRecipients struct {
	recipients map[string]domain.Recipient
}

func NewStaticRecipients(recipients map[string]domain.Recipient) *StaticRecipients {
	return &StaticRecipients{recipients: recipients}
}

func (r *StaticRecipients) Recipient(_ context.Context, userID string) (domain.Recipient, error) {
	if rec, ok := r.recipients[userID]; ok {
		return rec, nil
	}
	return domain.Recipient{}, domain.ErrUserNotFound
}
