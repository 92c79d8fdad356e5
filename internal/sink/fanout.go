package sink

import "github.com/lexiqai/avatar-link/internal/avatar"

// Fanout forwards every call to each sink in order
type Fanout []avatar.Sink

func (f Fanout) ApplyParameters(params []avatar.Param) {
	for _, s := range f {
		s.ApplyParameters(params)
	}
}

func (f Fanout) TriggerMotion(group string, index, priority int) {
	for _, s := range f {
		s.TriggerMotion(group, index, priority)
	}
}
