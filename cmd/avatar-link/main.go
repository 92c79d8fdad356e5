package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lexiqai/avatar-link/internal/audio"
	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/lexiqai/avatar-link/internal/config"
	"github.com/lexiqai/avatar-link/internal/connection"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// options are command line overrides of the environment configuration
type options struct {
	url      string
	sink     string
	logLevel string
	noAudio  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "avatar-link",
		Short: "Drive an animated avatar from a live backend feed",
		Long: `avatar-link keeps a websocket connection to the avatar backend, applies
state, emotion, motion and parameter messages to the avatar, and plays speech
clips while emitting a lip-sync signal. Lines typed on stdin are sent as user
text.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cfg, cmd, opts); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.InOrStdin())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", "", "backend websocket URL (overrides AVATAR_WS_URL)")
	flags.StringVar(&opts.sink, "sink", "", "parameter sink: log or redis (overrides PARAM_SINK)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flags.BoolVar(&opts.noAudio, "no-audio", false, "drop audio messages (overrides ENABLE_AUDIO)")

	return cmd
}

// applyFlags copies explicitly set flags over cfg and revalidates it
func applyFlags(cfg *config.Config, cmd *cobra.Command, opts *options) error {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.AvatarURL = opts.url
	}
	if flags.Changed("sink") {
		cfg.ParamSink = opts.sink
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("no-audio") && opts.noAudio {
		cfg.EnableAudio = false
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, stdin io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("url", cfg.URL()).
		Bool("auto_reconnect", cfg.AutoReconnect).
		Dur("reconnect_interval", cfg.ReconnectDelay()).
		Bool("audio", cfg.EnableAudio).
		Bool("lip_sync", cfg.EnableLipSync).
		Str("param_sink", cfg.ParamSink).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Avatar link starting")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	paramSink, closeSink, checks, err := buildSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close parameter sink")
		}
	}()

	profile, err := avatar.LoadProfile(cfg.EmotionProfile)
	if err != nil {
		return err
	}

	var output audio.Output
	if cfg.EnableAudio {
		if output, err = buildOutput(cfg); err != nil {
			return err
		}
	}

	p := newPipeline(cfg, paramSink, profile, pipelineDeps{output: output})
	manager, controller := p.manager, p.controller

	checks["connection"] = func(ctx context.Context) (bool, error) {
		state := manager.State()
		if state != connection.StateConnected {
			return false, fmt.Errorf("connection %s", state)
		}
		return true, nil
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      newOpsMux(cfg, checks),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("Ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Ops server failed")
		}
	}()

	// Failures are handled by the reconnect state machine
	_ = manager.Connect(ctx)

	go readInput(ctx, stdin, manager, controller, logger)

	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	p.close(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ops server forced to shutdown")
	}

	logger.Info().Int("history_lines", controller.History().Len()).Msg("Avatar link exited gracefully")
	return nil
}

// lineSender sends user text over the connection
type lineSender interface {
	SendText(text string, isUser bool) error
}

// lineRecorder keeps user text in the local history
type lineRecorder interface {
	RecordUserLine(text string) bool
}

// readInput sends each non-empty stdin line as user text and records it
// locally. It returns at end of input or when ctx is done.
func readInput(ctx context.Context, r io.Reader, sender lineSender, recorder lineRecorder, logger zerolog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := sender.SendText(text, true); err != nil {
			logger.Warn().Err(err).Msg("Failed to send user text")
			continue
		}
		recorder.RecordUserLine(text)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn().Err(err).Msg("Stopped reading input")
	}
}
