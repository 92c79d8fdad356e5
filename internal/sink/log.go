package sink

import (
	"github.com/lexiqai/avatar-link/internal/avatar"
	"github.com/rs/zerolog"
)

// LogSink writes every sink call to a structured logger. Lip-sync updates
// arrive once per frame and are logged at trace level.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink logging to logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) ApplyParameters(params []avatar.Param) {
	level := zerolog.DebugLevel
	if len(params) == 1 && params[0].Name == avatar.MouthOpenParam {
		level = zerolog.TraceLevel
	}

	event := s.logger.WithLevel(level)
	if event == nil {
		return
	}
	dict := zerolog.Dict()
	for _, p := range params {
		dict = dict.Float64(p.Name, p.Value)
	}
	event.Dict("params", dict).Msg("Apply parameters")
}

func (s *LogSink) TriggerMotion(group string, index, priority int) {
	s.logger.Info().
		Str("group", group).
		Int("index", index).
		Int("priority", priority).
		Msg("Trigger motion")
}
