package repository

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-session-engine/internal/config"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// CatalogBackend is the authoritative catalog behind the cache.
type CatalogBackend interface {
	GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListExams(ctx context.Context, instructorID, limit, offset int) ([]model.Exam, int, error)
	CreateExam(ctx context.Context, e *model.Exam) error
	UpdateExam(ctx context.Context, e *model.Exam) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListQuestionsForExam(ctx context.Context, examID uuid.UUID, orderBy model.QuestionOrder) ([]model.Question, error)
	CreateQuestion(ctx context.Context, q *model.Question) error
	UpdateQuestion(ctx context.Context, q *model.Question) error
	GetChoice(ctx context.Context, id uuid.UUID) (*model.Choice, error)
	ListChoicesForQuestion(ctx context.Context, questionID uuid.UUID) ([]model.Choice, error)
	CreateChoice(ctx context.Context, c *model.Choice) error
	UpdateChoice(ctx context.Context, c *model.Choice) error
}

// CachedCatalog is a read-through Redis cache in front of the catalog.
// Writes go to the backend first, then drop the affected keys.
// Redis failures are logged and fall back to the backend.
type CachedCatalog struct {
	backend CatalogBackend
	rdb     *redis.Client
	ttl     time.Duration
	log     zerolog.Logger
}

// NewCachedCatalog creates a new CachedCatalog.
func NewCachedCatalog(backend CatalogBackend, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		backend: backend,
		rdb:     rdb,
		ttl:     ttl,
		log:     log.With().Str("component", "catalog_cache").Logger(),
	}
}

// cached returns the decoded value at key, or loads it and stores the result.
func cached[T any](ctx context.Context, c *CachedCatalog, key string, load func() (T, error)) (T, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		c.log.Warn().Str("key", key).Msg("Dropping undecodable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
	return v, nil
}

func (c *CachedCatalog) invalidate(ctx context.Context, keys ...string) {
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}

// GetExam retrieves an exam through the cache.
func (c *CachedCatalog) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return cached(ctx, c, config.CacheKey.ExamKey(id.String()), func() (*model.Exam, error) {
		return c.backend.GetExam(ctx, id)
	})
}

// ListExams is not cached.
func (c *CachedCatalog) ListExams(ctx context.Context, instructorID, limit, offset int) ([]model.Exam, int, error) {
	return c.backend.ListExams(ctx, instructorID, limit, offset)
}

func (c *CachedCatalog) CreateExam(ctx context.Context, e *model.Exam) error {
	return c.backend.CreateExam(ctx, e)
}

func (c *CachedCatalog) UpdateExam(ctx context.Context, e *model.Exam) error {
	if err := c.backend.UpdateExam(ctx, e); err != nil {
		return err
	}
	c.invalidate(ctx, config.CacheKey.ExamKey(e.ID.String()))
	return nil
}

// GetQuestion retrieves a question through the cache.
func (c *CachedCatalog) GetQuestion(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return cached(ctx, c, config.CacheKey.QuestionKey(id.String()), func() (*model.Question, error) {
		return c.backend.GetQuestion(ctx, id)
	})
}

// ListQuestionsForExam caches the presentation order and derives the id order from it.
func (c *CachedCatalog) ListQuestionsForExam(ctx context.Context, examID uuid.UUID, orderBy model.QuestionOrder) ([]model.Question, error) {
	questions, err := cached(ctx, c, config.CacheKey.ExamQuestionsKey(examID.String()), func() ([]model.Question, error) {
		return c.backend.ListQuestionsForExam(ctx, examID, model.OrderByPosition)
	})
	if err != nil {
		return nil, err
	}
	if orderBy == model.OrderByID {
		questions = slices.Clone(questions)
		slices.SortFunc(questions, func(a, b model.Question) int {
			return slices.Compare(a.ID[:], b.ID[:])
		})
	}
	return questions, nil
}

func (c *CachedCatalog) CreateQuestion(ctx context.Context, q *model.Question) error {
	if err := c.backend.CreateQuestion(ctx, q); err != nil {
		return err
	}
	c.invalidate(ctx,
		config.CacheKey.ExamQuestionsKey(q.ExamID.String()),
		config.CacheKey.ExamKey(q.ExamID.String()),
	)
	return nil
}

func (c *CachedCatalog) UpdateQuestion(ctx context.Context, q *model.Question) error {
	if err := c.backend.UpdateQuestion(ctx, q); err != nil {
		return err
	}
	c.invalidate(ctx,
		config.CacheKey.QuestionKey(q.ID.String()),
		config.CacheKey.ExamQuestionsKey(q.ExamID.String()),
		config.CacheKey.ExamKey(q.ExamID.String()),
	)
	return nil
}

// GetChoice retrieves a choice through the cache.
func (c *CachedCatalog) GetChoice(ctx context.Context, id uuid.UUID) (*model.Choice, error) {
	return cached(ctx, c, config.CacheKey.ChoiceKey(id.String()), func() (*model.Choice, error) {
		return c.backend.GetChoice(ctx, id)
	})
}

// ListChoicesForQuestion retrieves a question's choices through the cache.
func (c *CachedCatalog) ListChoicesForQuestion(ctx context.Context, questionID uuid.UUID) ([]model.Choice, error) {
	return cached(ctx, c, config.CacheKey.QuestionChoicesKey(questionID.String()), func() ([]model.Choice, error) {
		return c.backend.ListChoicesForQuestion(ctx, questionID)
	})
}

func (c *CachedCatalog) CreateChoice(ctx context.Context, ch *model.Choice) error {
	if err := c.backend.CreateChoice(ctx, ch); err != nil {
		return err
	}
	c.invalidate(ctx, config.CacheKey.QuestionChoicesKey(ch.QuestionID.String()))
	return nil
}

func (c *CachedCatalog) UpdateChoice(ctx context.Context, ch *model.Choice) error {
	if err := c.backend.UpdateChoice(ctx, ch); err != nil {
		return err
	}
	c.invalidate(ctx,
		config.CacheKey.ChoiceKey(ch.ID.String()),
		config.CacheKey.QuestionChoicesKey(ch.QuestionID.String()),
	)
	return nil
}
