package redis

import (
	"context"
	"math/rand"
	"time"

	"quiz-admin-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SettingsLoader fetches certificate settings from the backing store.
type SettingsLoader interface {
	CertificateSettings(ctx context.Context, quizID string) (domain.CertificateSettings, error)
}

// SettingsCache caches per-quiz certificate settings in Redis (one hash
// per quiz) and falls back to the loader on a miss. Stored as:
// HSET quiz:{quizID}:cert title {title} enabled {0|1} template {raw}
type SettingsCache struct {
	client *redis.Client
	loader SettingsLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSettingsCache(client *redis.Client, loader SettingsLoader, ttl time.Duration) *SettingsCache {
	return &SettingsCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SettingsCache) CertificateSettings(ctx context.Context, quizID string) (domain.CertificateSettings, error) {
	key := c.key(quizID)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return settingsFromHash(quizID, fields), nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the hash.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return settingsFromHash(quizID, fields), nil
		}

		settings, err := c.loader.CertificateSettings(ctx, quizID)
		if err != nil {
			return domain.CertificateSettings{}, err
		}

		enabled := "0"
		if settings.Enabled {
			enabled = "1"
		}
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, "title", settings.QuizTitle, "enabled", enabled, "template", settings.TemplateRaw)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return settings, nil
	})
	if err != nil {
		return domain.CertificateSettings{}, err
	}
	return result.(domain.CertificateSettings), nil
}

// Invalidate drops the cached hash, e.g. after an admin edits the quiz.
func (c *SettingsCache) Invalidate(ctx context.Context, quizID string) {
	_ = c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *SettingsCache) key(quizID string) string {
	return "quiz:" + quizID + ":cert"
}

func settingsFromHash(quizID string, fields map[string]string) domain.CertificateSettings {
	return domain.CertificateSettings{
		QuizID:      quizID,
		QuizTitle:   fields["title"],
		Enabled:     fields["enabled"] == "1",
		TemplateRaw: fields["template"],
	}
}

func (c *SettingsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
