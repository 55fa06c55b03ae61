package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recvFrame pops one raw frame from an outbound channel, failing the test if
// none arrives promptly.
func recvFrame(t *testing.T, send chan []byte) []byte {
	t.Helper()

	select {
	case frame, ok := <-send:
		require.True(t, ok, "outbound channel closed while expecting a frame")
		return frame
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an outbound frame")
		return nil
	}
}

// recvEnvelope pops and decodes one envelope from an outbound channel.
func recvEnvelope(t *testing.T, send chan []byte) Envelope {
	t.Helper()

	env, err := DecodeEnvelope(recvFrame(t, send))
	require.NoError(t, err)
	return env
}

// assertNoFrame asserts that no frame is pending on the channel.
func assertNoFrame(t *testing.T, send chan []byte) {
	t.Helper()

	select {
	case frame := <-send:
		t.Fatalf("unexpected outbound frame: %s", frame)
	default:
	}
}

func TestRegistryAddAssignsDefaultName(t *testing.T) {
	r := NewRegistry()

	name := r.Add(7, make(chan []byte, 1))

	assert.Equal(t, "User #7", name)
	assert.Equal(t, 1, r.Len())
	assert.ElementsMatch(t, []string{"User #7"}, r.Usernames())
}

func TestRegistryUsernamesMatchLiveConnections(t *testing.T) {
	r := NewRegistry()

	r.Add(1, make(chan []byte, 1))
	r.Add(2, make(chan []byte, 1))
	r.Add(3, make(chan []byte, 1))

	assert.ElementsMatch(t, []string{"User #1", "User #2", "User #3"}, r.Usernames())

	_, ok := r.Remove(2)
	require.True(t, ok)

	assert.ElementsMatch(t, []string{"User #1", "User #3"}, r.Usernames())
	assert.Equal(t, 2, r.Len())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	send := make(chan []byte, 1)
	r.Add(4, send)

	name, ok := r.Remove(4)
	assert.True(t, ok)
	assert.Equal(t, "User #4", name)

	// Channel is closed by the first removal.
	_, open := <-send
	assert.False(t, open)

	_, ok = r.Remove(4)
	assert.False(t, ok)
}

func TestRegistryRename(t *testing.T) {
	r := NewRegistry()
	r.Add(1, make(chan []byte, 1))

	old, ok := r.Rename(1, "Alice")
	require.True(t, ok)
	assert.Equal(t, "User #1", old)
	assert.ElementsMatch(t, []string{"Alice"}, r.Usernames())

	current, ok := r.Username(1)
	require.True(t, ok)
	assert.Equal(t, "Alice", current)

	_, ok = r.Rename(99, "Ghost")
	assert.False(t, ok)

	_, ok = r.Username(99)
	assert.False(t, ok)
}

func TestRegistryBroadcastReachesEveryConnection(t *testing.T) {
	r := NewRegistry()

	a := make(chan []byte, 4)
	b := make(chan []byte, 4)
	r.Add(1, a)
	r.Add(2, b)

	r.Broadcast(NewRosterEnvelope([]string{"User #1", "User #2"}))

	frameA := recvFrame(t, a)
	frameB := recvFrame(t, b)

	// Serialize-once: every recipient of a round sees byte-identical payloads.
	assert.Equal(t, frameA, frameB)

	env, err := DecodeEnvelope(frameA)
	require.NoError(t, err)
	assert.Equal(t, TypeUsersList, env.MessageType)
	assert.ElementsMatch(t, []string{"User #1", "User #2"}, env.Users)
}

func TestRegistryBroadcastSkipsFullQueues(t *testing.T) {
	r := NewRegistry()

	full := make(chan []byte, 1)
	full <- []byte("stuck")
	healthy := make(chan []byte, 4)
	r.Add(1, full)
	r.Add(2, healthy)

	r.Broadcast(NewUsernameEnvelope("x"))

	// The healthy connection is served even though its peer's queue is full.
	env := recvEnvelope(t, healthy)
	assert.Equal(t, TypeUsernameChange, env.MessageType)

	assert.Equal(t, []byte("stuck"), <-full)
	assertNoFrame(t, full)
}

func TestRegistryUnicast(t *testing.T) {
	r := NewRegistry()

	a := make(chan []byte, 4)
	b := make(chan []byte, 4)
	r.Add(1, a)
	r.Add(2, b)

	r.Unicast(1, NewUsernameEnvelope("Alice"))

	env := recvEnvelope(t, a)
	assert.Equal(t, TypeUsernameChange, env.MessageType)
	require.NotNil(t, env.Username)
	assert.Equal(t, "Alice", *env.Username)

	assertNoFrame(t, b)

	// Delivery to a vanished id is swallowed.
	r.Unicast(42, NewUsernameEnvelope("nobody"))
}

func TestRegistryDrainClosesEverything(t *testing.T) {
	r := NewRegistry()

	a := make(chan []byte, 1)
	b := make(chan []byte, 1)
	r.Add(1, a)
	r.Add(2, b)

	r.Drain()

	assert.Equal(t, 0, r.Len())
	_, openA := <-a
	_, openB := <-b
	assert.False(t, openA)
	assert.False(t, openB)
}
