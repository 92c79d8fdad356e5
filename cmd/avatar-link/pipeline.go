package main

import (
	"github.com/lexiqai/avatar-link/internal/audio"
	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/lexiqai/avatar-link/internal/config"
	"github.com/lexiqai/avatar-link/internal/connection"
	"github.com/lexiqai/avatar-link/internal/observability"
	"github.com/lexiqai/avatar-link/internal/router"
	"github.com/rs/zerolog"
)

// pipeline is the inbound chain: connection, router, controller, clip
// queue and audio engine
type pipeline struct {
	manager    *connection.Manager
	controller *avatar.Controller
	clips      *avatar.ClipQueue // nil when audio is disabled
	engine     *audio.Engine     // nil when audio is disabled
}

// pipelineDeps are the collaborators chosen at wiring time. Zero values
// select the production implementations; a nil output disables audio.
type pipelineDeps struct {
	output    audio.Output
	scheduler audio.FrameScheduler
	dialer    connection.Dialer
	signals   audio.SignalObserver
}

func newPipeline(cfg *config.Config, paramSink avatar.Sink, profile avatar.Profile, deps pipelineDeps) *pipeline {
	p := &pipeline{}

	avatarLogger := observability.Component("avatar")
	controllerOpts := []avatar.ControllerOption{
		avatar.WithProfile(profile),
		avatar.WithHistory(avatar.NewHistory(cfg.HistoryLimit)),
		avatar.WithStateObserver(func(s avatar.State) {
			avatarLogger.Info().Str("state", string(s)).Msg("Avatar state changed")
		}),
	}

	if deps.output != nil {
		scheduler := deps.scheduler
		if scheduler == nil {
			scheduler = audio.NewTickerScheduler(cfg.LipSyncFrameRate)
		}
		p.engine = audio.NewEngine(deps.output, paramSink,
			audio.WithScheduler(scheduler),
			audio.WithSignalObserver(deps.signals),
			audio.WithLipSync(cfg.EnableLipSync),
			audio.WithSampleRate(cfg.AudioSampleRate),
			audio.WithAnalyser(cfg.AnalyserFFTSize, cfg.AnalyserSmoothing),
		)
		p.clips = avatar.NewClipQueue(p.engine, avatar.DefaultClipQueueDepth)
		controllerOpts = append(controllerOpts, avatar.WithPlayer(p.clips))
	}

	p.controller = avatar.NewController(paramSink, controllerOpts...)
	dispatcher := router.New(p.controller)

	connLogger := observability.Component("connection")
	p.manager = connection.NewManager(connection.Options{
		URL:               cfg.URL(),
		AutoReconnect:     cfg.AutoReconnect,
		ReconnectInterval: cfg.ReconnectDelay(),
		DialTimeout:       cfg.DialTimeoutDuration(),
		Dialer:            deps.dialer,
	}, connection.ObserverFuncs{
		StateChange: func(s connection.State) {
			connLogger.Info().Str("state", s.String()).Str("indicator", s.Indicator()).Msg("Connection state changed")
		},
		Message: dispatcher.Dispatch,
	})

	return p
}

// close stops the chain front to back: no new messages, then no new
// clips, then the audio device
func (p *pipeline) close(logger zerolog.Logger) {
	p.manager.Disconnect()
	if p.clips != nil {
		p.clips.Close()
	}
	if p.engine != nil {
		if err := p.engine.Dispose(); err != nil {
			logger.Warn().Err(err).Msg("Failed to release audio output")
		}
	}
}
