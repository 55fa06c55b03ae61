package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelopePayloadNulls(t *testing.T) {
	frame, err := EncodeEnvelope(NewUsernameEnvelope("Alice"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &raw))

	assert.JSONEq(t, `"UsernameChange"`, string(raw["message_type"]))
	assert.JSONEq(t, `"Alice"`, string(raw["username"]))
	assert.JSONEq(t, `null`, string(raw["message"]))
	assert.JSONEq(t, `null`, string(raw["users"]))
}

func TestEncodeRosterEnvelopeNeverNull(t *testing.T) {
	frame, err := EncodeEnvelope(NewRosterEnvelope(nil))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &raw))

	assert.JSONEq(t, `[]`, string(raw["users"]))
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
	}{
		{
			name:  "chat post",
			frame: `{"message_type":"NewMessage","message":{"message":"hello","author":"","created_at":"2024-05-01T10:00:00"},"users":null,"username":null}`,
		},
		{
			name:  "rename request",
			frame: `{"message_type":"UsernameChange","message":null,"users":null,"username":"Bob"}`,
		},
		{
			name:  "roster",
			frame: `{"message_type":"UsersList","message":null,"users":["a","b"],"username":null}`,
		},
		{
			name:    "chat post without message payload",
			frame:   `{"message_type":"NewMessage","message":null,"users":null,"username":null}`,
			wantErr: true,
		},
		{
			name:    "rename without username payload",
			frame:   `{"message_type":"UsernameChange","message":null,"users":null,"username":null}`,
			wantErr: true,
		},
		{
			name:    "unknown discriminant",
			frame:   `{"message_type":"Shrug","message":null,"users":null,"username":null}`,
			wantErr: true,
		},
		{
			name:    "not json",
			frame:   `¯\_(ツ)_/¯`,
			wantErr: true,
		},
		{
			name:    "wrong field types",
			frame:   `{"message_type":"NewMessage","message":"just a string"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.frame))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, env.MessageType)
		})
	}
}

func TestDecodeEnvelopeKeepsBody(t *testing.T) {
	frame := `{"message_type":"NewMessage","message":{"message":"hi there","author":"ignored","created_at":"2024-05-01T10:00:00.5"},"users":null,"username":null}`

	env, err := DecodeEnvelope([]byte(frame))
	require.NoError(t, err)
	require.NotNil(t, env.Message)

	assert.Equal(t, "hi there", env.Message.Message)
	assert.Equal(t, 2024, env.Message.CreatedAt.Year())
	assert.Equal(t, 500*time.Millisecond, time.Duration(env.Message.CreatedAt.Nanosecond()))
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := Timestamp{time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC)}

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-01T10:30:00.123456789"`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, ts.Equal(back.Time))
}

func TestTimestampAcceptsRFC3339(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-01T10:30:00Z"`), &ts))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), ts.Time)

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestNowIsUTC(t *testing.T) {
	ts := Now()
	assert.Equal(t, time.UTC, ts.Location())
}
