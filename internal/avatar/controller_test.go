package avatar

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lexiqai/avatar-link/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type motionCall struct {
	group    string
	index    int
	priority int
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Param
	motions []motionCall
}

func (s *fakeSink) ApplyParameters(params []Param) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Param(nil), params...))
}

func (s *fakeSink) TriggerMotion(group string, index, priority int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.motions = append(s.motions, motionCall{group, index, priority})
}

type fakePlayer struct {
	clips []protocol.AudioPayload
	err   error
}

func (p *fakePlayer) Play(clip protocol.AudioPayload) error {
	p.clips = append(p.clips, clip)
	return p.err
}

func TestController_State(t *testing.T) {
	var observed []State
	c := NewController(&fakeSink{}, WithStateObserver(func(s State) { observed = append(observed, s) }))

	assert.Equal(t, StateIdle, c.State())

	c.HandleState(protocol.StatePayload{State: "speaking"})
	assert.Equal(t, StateSpeaking, c.State())

	c.HandleState(protocol.StatePayload{State: "dancing"})
	assert.Equal(t, StateSpeaking, c.State(), "unknown states are ignored")
	assert.Equal(t, []State{StateSpeaking}, observed)
}

func TestController_Text(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewController(&fakeSink{}, WithHistory(NewHistory(10)), WithNow(func() time.Time { return at }))

	c.HandleText(protocol.TextPayload{Text: "Hello there", IsUser: false})
	c.HandleText(protocol.TextPayload{Text: "undefined"})
	c.HandleText(protocol.TextPayload{Text: " null "})
	c.HandleText(protocol.TextPayload{Text: "   "})
	assert.True(t, c.RecordUserLine("hi"))
	assert.False(t, c.RecordUserLine(""))

	assert.Equal(t, []Line{
		{Text: "Hello there", IsUser: false, At: at},
		{Text: "hi", IsUser: true, At: at},
	}, c.History().Lines())
}

func TestController_Emotion(t *testing.T) {
	sink := &fakeSink{}
	c := NewController(sink)

	c.HandleEmotion(protocol.EmotionPayload{Emotion: "happy"})
	c.HandleEmotion(protocol.EmotionPayload{Emotion: "bored"})

	require.Len(t, sink.batches, 2)
	assert.Equal(t, DefaultProfile()[EmotionHappy], sink.batches[0])
	assert.Equal(t, DefaultProfile()[EmotionNeutral], sink.batches[1], "unknown emotions fall back to neutral")
	assert.Equal(t, EmotionNeutral, c.Emotion())
}

func TestController_Motion(t *testing.T) {
	sink := &fakeSink{}
	c := NewController(sink)

	priority := 2
	c.HandleMotion(protocol.MotionPayload{Group: "TapBody", Index: 1, Priority: &priority})
	c.HandleMotion(protocol.MotionPayload{Group: "Idle", Index: 0})

	assert.Equal(t, []motionCall{
		{"TapBody", 1, 2},
		{"Idle", 0, DefaultMotionPriority},
	}, sink.motions)
}

func TestController_Params(t *testing.T) {
	sink := &fakeSink{}
	c := NewController(sink)

	c.HandleParams(protocol.ParamPayload{Params: []Param{{Name: "ParamAngleX", Value: 15}}})
	c.HandleParams(protocol.ParamPayload{})

	require.Len(t, sink.batches, 1)
	assert.Equal(t, []Param{{Name: "ParamAngleX", Value: 15}}, sink.batches[0])
}

func TestController_Audio(t *testing.T) {
	clip := protocol.AudioPayload{Audio: "UklGRg==", Format: "wav", SampleRate: 24000}

	t.Run("forwards to player", func(t *testing.T) {
		player := &fakePlayer{}
		NewController(&fakeSink{}, WithPlayer(player)).HandleAudio(clip)
		assert.Equal(t, []protocol.AudioPayload{clip}, player.clips)
	})

	t.Run("player failure is contained", func(t *testing.T) {
		player := &fakePlayer{err: errors.New("bad clip")}
		c := NewController(&fakeSink{}, WithPlayer(player))
		c.HandleAudio(clip)
		c.HandleText(protocol.TextPayload{Text: "still talking"})
		assert.Equal(t, 1, c.History().Len())
	})

	t.Run("disabled without player", func(t *testing.T) {
		assert.NotPanics(t, func() { NewController(&fakeSink{}).HandleAudio(clip) })
	})
}

func TestController_Heartbeat(t *testing.T) {
	at := time.Unix(1700000000, 0)
	c := NewController(&fakeSink{}, WithNow(func() time.Time { return at }))

	assert.True(t, c.LastHeartbeat().IsZero())
	ts := int64(5)
	c.HandleHeartbeat(&ts)
	assert.Equal(t, at, c.LastHeartbeat())
}
