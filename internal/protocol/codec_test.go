package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_State(t *testing.T) {
	env, err := Decode([]byte(`{"type":"state","data":{"state":"speaking"},"timestamp":1700000000000}`))
	require.NoError(t, err)

	assert.Equal(t, TypeState, env.Type)
	require.NotNil(t, env.Timestamp)
	assert.Equal(t, int64(1700000000000), *env.Timestamp)

	payload, err := DecodePayload[StatePayload](env)
	require.NoError(t, err)
	assert.Equal(t, "speaking", payload.State)
}

func TestDecode_PayloadAlias(t *testing.T) {
	env, err := Decode([]byte(`{"type":"text","payload":{"text":"hi","isUser":false}}`))
	require.NoError(t, err)
	assert.Nil(t, env.Timestamp)

	payload, err := DecodePayload[TextPayload](env)
	require.NoError(t, err)
	assert.Equal(t, "hi", payload.Text)
	assert.False(t, payload.IsUser)
}

func TestDecode_FloatTimestamp(t *testing.T) {
	env, err := Decode([]byte(`{"type":"ping","timestamp":1700000000123.9}`))
	require.NoError(t, err)
	require.NotNil(t, env.Timestamp)
	assert.Equal(t, int64(1700000000123), *env.Timestamp)
}

func TestDecode_UnknownTypeIsNotAnError(t *testing.T) {
	env, err := Decode([]byte(`{"type":"foo","data":{}}`))
	require.NoError(t, err)
	assert.False(t, env.Type.IsRecognized())
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "hello there"},
		{"empty", ""},
		{"whitespace", "   "},
		{"missing type", `{"data":{}}`},
		{"array", `[1,2,3]`},
		{"bad timestamp", `{"type":"ping","timestamp":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.input))
			assert.Nil(t, env)
			require.Error(t, err)
			assert.True(t, IsDecodeError(err))

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, KindEnvelope, decodeErr.Kind)
		})
	}
}

func TestDecodePayload_WrongShape(t *testing.T) {
	env, err := Decode([]byte(`{"type":"motion","data":{"group":"idle","index":"first"}}`))
	require.NoError(t, err)

	_, err = DecodePayload[MotionPayload](env)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, KindPayload, decodeErr.Kind)
}

func TestDecodePayload_Missing(t *testing.T) {
	env, err := Decode([]byte(`{"type":"ping"}`))
	require.NoError(t, err)

	payload, err := DecodePayload[PongPayload](env)
	require.NoError(t, err)
	assert.Zero(t, payload.Timestamp)
}

func TestEncode(t *testing.T) {
	now := time.UnixMilli(1700000000456)

	data, err := Encode(TypeText, TextPayload{Text: "hello", IsUser: true}, now)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "text", raw["type"])
	assert.EqualValues(t, 1700000000456, raw["timestamp"])
	assert.Equal(t, map[string]interface{}{"text": "hello", "isUser": true}, raw["data"])
}

func TestEncode_NoPayload(t *testing.T) {
	data, err := Encode(TypePing, nil, time.UnixMilli(1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping","timestamp":1}`, string(data))
}

func TestEncode_RequiresType(t *testing.T) {
	_, err := Encode("", nil, time.Now())
	assert.Error(t, err)
}

func TestPayloadValidation(t *testing.T) {
	assert.Error(t, StatePayload{}.Validate())
	assert.NoError(t, StatePayload{State: "idle"}.Validate())

	assert.Error(t, AudioPayload{}.Validate())
	assert.Error(t, AudioPayload{Audio: "AAAA", Format: "ogg"}.Validate())
	assert.NoError(t, AudioPayload{Audio: "AAAA", Format: "WAV", SampleRate: 24000}.Validate())

	assert.Error(t, MotionPayload{Index: 1}.Validate())
	assert.Error(t, MotionPayload{Group: "tap", Index: -1}.Validate())
	assert.NoError(t, MotionPayload{Group: "tap"}.Validate())

	assert.Error(t, ParamPayload{Params: []Param{{Value: 1}}}.Validate())
	assert.NoError(t, ParamPayload{Params: []Param{{Name: "ParamAngleX", Value: 1}}}.Validate())

	assert.Error(t, EmotionPayload{}.Validate())
}
