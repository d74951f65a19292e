package nats

import (
	"testing"
	"time"

	"arcane-chat-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageDecode_RoundTripsTypeAndTime(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 30, 0, 123456789, time.UTC)
	msg, err := Message(events.New("THREAD_CREATED", map[string]interface{}{"thread_id": "t-1"}, at))
	require.NoError(t, err)

	assert.Equal(t, "events.THREAD_CREATED", msg.Subject)
	assert.Equal(t, "THREAD_CREATED", msg.Header.Get(HeaderEventType))

	event, err := Decode(msg.Subject, msg.Header, msg.Data)
	require.NoError(t, err)
	assert.Equal(t, "THREAD_CREATED", event.EventType())
	assert.True(t, at.Equal(event.Timestamp()))
	assert.Equal(t, "t-1", event.Payload()["thread_id"])
}

func TestDecode_WithoutHeaders(t *testing.T) {
	before := time.Now().UTC()
	event, err := Decode("events.USER_LOGIN", nats.Header{}, []byte(`{"user_id":"u"}`))
	require.NoError(t, err)

	assert.Equal(t, "USER_LOGIN", event.EventType())
	assert.False(t, event.Timestamp().Before(before))
	assert.Equal(t, "u", event.Payload()["user_id"])
}

func TestDecode_RejectsBadPayload(t *testing.T) {
	_, err := Decode("events.X", nats.Header{}, []byte(`not json`))
	assert.Error(t, err)
}
