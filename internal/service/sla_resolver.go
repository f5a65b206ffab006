package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util/errorutil"
)

const slaCacheKeyPrefix = "sla_category:"

// SLACache is the subset of the go-redis client used to cache categories.
type SLACache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// SLAResolver looks up SLA categories by id, read-through a Redis cache.
type SLAResolver struct {
	repo   repository.SlaCategoryRepository
	cache  SLACache
	ttl    time.Duration
	logger *zap.Logger
}

// NewSLAResolver builds a resolver. cache may be nil.
func NewSLAResolver(repo repository.SlaCategoryRepository, cache SLACache, ttl time.Duration, logger *zap.Logger) *SLAResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAResolver{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Resolve returns the category or NOT_FOUND. Cache failures fall back to
// the repository.
func (r *SLAResolver) Resolve(ctx context.Context, id string) (*domain.SlaCategory, error) {
	if id == "" {
		return nil, apperrors.NewNotFound("sla category", nil)
	}
	if category, ok := r.fromCache(ctx, id); ok {
		return category, nil
	}

	category, err := r.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("sla category", map[string]any{"id": id})
		}
		return nil, err
	}
	r.store(ctx, category)
	return category, nil
}

// List returns every configured category.
func (r *SLAResolver) List(ctx context.Context) ([]domain.SlaCategory, error) {
	return r.repo.List(ctx)
}

func (r *SLAResolver) fromCache(ctx context.Context, id string) (*domain.SlaCategory, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, slaCacheKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Debug("sla cache read failed", zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}
	var category domain.SlaCategory
	if err := json.Unmarshal(raw, &category); err != nil {
		return nil, false
	}
	return &category, true
}

func (r *SLAResolver) store(ctx context.Context, category *domain.SlaCategory) {
	if r.cache == nil || r.ttl <= 0 {
		return
	}
	body, err := json.Marshal(category)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, slaCacheKeyPrefix+category.ID, body, r.ttl).Err(); err != nil {
		r.logger.Debug("sla cache write failed", zap.String("id", category.ID), zap.Error(err))
	}
}
