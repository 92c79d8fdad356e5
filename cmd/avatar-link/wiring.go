package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lexiqai/avatar-link/internal/audio"
	"github.com/lexiqai/avatar-link/internal/audio/device"
	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/lexiqai/avatar-link/internal/config"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/sink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildSink creates the configured parameter sink, its close function and
// the readiness checks it contributes
func buildSink(cfg *config.Config) (avatar.Sink, func() error, map[string]observability.HealthCheckFunc, error) {
	checks := make(map[string]observability.HealthCheckFunc)
	logSink := sink.NewLogSink(observability.Component("param_sink"))

	switch cfg.ParamSink {
	case config.SinkRedis:
		redisSink, err := sink.NewRedisSink(sink.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RedisChannel,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create redis sink: %w", err)
		}
		checks["redis"] = func(ctx context.Context) (bool, error) {
			if err := redisSink.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		}
		return sink.Fanout{logSink, redisSink}, redisSink.Close, checks, nil
	default:
		return logSink, func() error { return nil }, checks, nil
	}
}

// buildOutput opens the configured audio output. In auto mode a missing
// device falls back to a silent clock-driven output.
func buildOutput(cfg *config.Config) (audio.Output, error) {
	logger := observability.Component("audio")

	switch cfg.AudioOutput {
	case config.OutputNull:
		return audio.NewClockOutput(), nil
	case config.OutputDevice:
		out, err := device.NewOutput(cfg.AudioSampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio device: %w", err)
		}
		return out, nil
	default:
		out, err := device.NewOutput(cfg.AudioSampleRate)
		if err != nil {
			logger.Warn().Err(err).Msg("Audio device unavailable, playing silently")
			return audio.NewClockOutput(), nil
		}
		return out, nil
	}
}

// newOpsMux serves liveness, readiness and, when enabled, metrics
func newOpsMux(cfg *config.Config, checks map[string]observability.HealthCheckFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger := observability.GetLogger()
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}
	return mux
}
