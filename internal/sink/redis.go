package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// publishTimeout bounds each publish so a slow Redis cannot stall the
// analysis loop for more than a few frames
const publishTimeout = 50 * time.Millisecond

// RedisConfig holds configuration for the Redis sink
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisSink publishes sink calls as JSON events on a Redis pub/sub channel
// for a renderer process to consume
type RedisSink struct {
	rdb     *redis.Client
	channel string
	now     func() time.Time
	logger  zerolog.Logger

	// Set while publishes fail so the error is logged once per outage
	failing atomic.Bool
}

// NewRedisSink connects to Redis and verifies the connection
func NewRedisSink(cfg RedisConfig) (*RedisSink, error) {
	if cfg.Channel == "" {
		return nil, errors.New("redis channel is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisSink{
		rdb:     rdb,
		channel: cfg.Channel,
		now:     time.Now,
		logger:  observability.Component("redis_sink").With().Str("channel", cfg.Channel).Logger(),
	}, nil
}

// Ping checks if Redis is reachable
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisSink) Close() error {
	return s.rdb.Close()
}

// RawClient returns the underlying client
func (s *RedisSink) RawClient() *redis.Client {
	return s.rdb
}

func (s *RedisSink) ApplyParameters(params []avatar.Param) {
	s.publish(paramsEvent(params, s.now()))
}

func (s *RedisSink) TriggerMotion(group string, index, priority int) {
	s.publish(motionEvent(group, index, priority, s.now()))
}

func (s *RedisSink) publish(event Event) {
	payload, err := event.marshal()
	if err != nil {
		s.logger.Error().Err(err).Str("kind", event.Kind).Msg("Failed to encode sink event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := s.rdb.Publish(ctx, s.channel, payload).Err(); err != nil {
		if !s.failing.Swap(true) {
			s.logger.Warn().Err(err).Msg("Failed to publish sink event")
		}
		return
	}
	if s.failing.Swap(false) {
		s.logger.Info().Msg("Publishing sink events again")
	}
}
