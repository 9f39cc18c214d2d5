package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"sendsmart/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	scoreCacheTTL    = time.Hour
	corridorCacheTTL = 15 * time.Minute
)

type Scorer interface {
	Score(ctx context.Context, from, to string, now time.Time) (*domain.ScoreResult, error)
}

type RateRepository interface {
	ListCorridors(ctx context.Context) ([]domain.Corridor, error)
	ListRecentHistory(ctx context.Context, from, to string, days int) ([]domain.RateObservation, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RateService fronts the predictor with a Redis cache. Daily rates only
// move once a day, so a scored corridor stays valid for an hour and the
// refresh job repopulates the hot corridors after each training run.
type RateService struct {
	tracer trace.Tracer
	scorer Scorer
	repo   RateRepository
	redis  RedisClient
}

func NewRateService(tracer trace.Tracer, scorer Scorer, repo RateRepository, redisClient RedisClient) *RateService {
	return &RateService{
		tracer: tracer,
		scorer: scorer,
		repo:   repo,
		redis:  redisClient,
	}
}

func (s *RateService) GetScore(ctx context.Context, from, to string) (*domain.ScoreResult, error) {
	ctx, span := s.tracer.Start(ctx, "rate-service.get-score")
	defer span.End()

	corridor := domain.NewCorridor(from, to)
	if s.redis != nil {
		cached, err := s.getScoreCache(ctx, corridor)
		if err != nil {
			log.Printf("redis cache read error: %v", err)
		}
		if cached != nil {
			return cached, nil
		}
	}

	result, err := s.scorer.Score(ctx, corridor.From, corridor.To, time.Now())
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if err := s.setScoreCache(ctx, corridor, result); err != nil {
			log.Printf("redis cache write error for %s: %v", corridor, err)
		}
	}
	return result, nil
}

// RefreshScore recomputes a corridor ignoring the cache; the score
// refresh job calls this after a model promotion.
func (s *RateService) RefreshScore(ctx context.Context, from, to string) (*domain.ScoreResult, error) {
	ctx, span := s.tracer.Start(ctx, "rate-service.refresh-score")
	defer span.End()

	corridor := domain.NewCorridor(from, to)
	result, err := s.scorer.Score(ctx, corridor.From, corridor.To, time.Now())
	if err != nil {
		if s.redis != nil {
			_ = s.redis.Del(ctx, scoreCacheKey(corridor)).Err()
		}
		return nil, err
	}
	if s.redis != nil {
		if err := s.setScoreCache(ctx, corridor, result); err != nil {
			log.Printf("redis cache write error for %s: %v", corridor, err)
		}
	}
	return result, nil
}

func (s *RateService) ListCorridors(ctx context.Context) ([]domain.Corridor, error) {
	ctx, span := s.tracer.Start(ctx, "rate-service.list-corridors")
	defer span.End()

	if s.redis != nil {
		data, err := s.redis.Get(ctx, "corridors").Bytes()
		if err == nil {
			var corridors []domain.Corridor
			if err := json.Unmarshal(data, &corridors); err == nil {
				return corridors, nil
			}
		} else if err != redis.Nil {
			log.Printf("redis cache read error: %v", err)
		}
	}

	corridors, err := s.repo.ListCorridors(ctx)
	if err != nil {
		return nil, err
	}
	if s.redis != nil {
		if data, err := json.Marshal(corridors); err == nil {
			_ = s.redis.Set(ctx, "corridors", data, corridorCacheTTL).Err()
		}
	}
	return corridors, nil
}

func (s *RateService) GetRecentHistory(ctx context.Context, from, to string, days int) ([]domain.RateObservation, error) {
	ctx, span := s.tracer.Start(ctx, "rate-service.get-recent-history")
	defer span.End()

	if days <= 0 {
		days = 60
	}
	return s.repo.ListRecentHistory(ctx, from, to, days)
}

func (s *RateService) setScoreCache(ctx context.Context, corridor domain.Corridor, result *domain.ScoreResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, scoreCacheKey(corridor), data, scoreCacheTTL).Err()
}

func (s *RateService) getScoreCache(ctx context.Context, corridor domain.Corridor) (*domain.ScoreResult, error) {
	data, err := s.redis.Get(ctx, scoreCacheKey(corridor)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result domain.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func scoreCacheKey(corridor domain.Corridor) string {
	return "score:" + corridor.Key()
}
