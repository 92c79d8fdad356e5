package sink

import (
	"encoding/json"
	"time"

	"github.com/lexiqai/avatar-link/internal/avatar"
)

// Event kinds published by remote sinks
const (
	KindParams = "params"
	KindMotion = "motion"
)

// Event is the wire form of one sink call
type Event struct {
	Kind      string         `json:"kind"`
	Params    []avatar.Param `json:"params,omitempty"`
	Motion    *Motion        `json:"motion,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Motion is a motion trigger
type Motion struct {
	Group    string `json:"group"`
	Index    int    `json:"index"`
	Priority int    `json:"priority"`
}

func paramsEvent(params []avatar.Param, now time.Time) Event {
	return Event{Kind: KindParams, Params: params, Timestamp: now.UnixMilli()}
}

func motionEvent(group string, index, priority int, now time.Time) Event {
	return Event{
		Kind:      KindMotion,
		Motion:    &Motion{Group: group, Index: index, Priority: priority},
		Timestamp: now.UnixMilli(),
	}
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}
