package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safesphere/internal/model"
)

func TestIncidentMessage_Types(t *testing.T) {
	msg, err := IncidentMessage(model.Incident{ID: "I1", Type: "Theft", Status: model.IncidentOpen})
	require.NoError(t, err)
	assert.Equal(t, TypeIncident, msg.Type)

	msg, err = IncidentMessage(model.Incident{ID: "SOS1", Type: model.SOSType, Status: model.IncidentCritical})
	require.NoError(t, err)
	assert.Equal(t, TypeSOS, msg.Type)

	inc, err := msg.Incident()
	require.NoError(t, err)
	assert.Equal(t, "SOS1", inc.ID)
}

func TestInMemory_PublishConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewInMemory(2)
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Publish(ctx, Message{Type: TypeSOS, Body: []byte(`{}`)}))
	select {
	case got := <-msgs:
		assert.Equal(t, TypeSOS, got.Type)
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestInMemory_FullBufferFailsFast(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	require.NoError(t, q.Publish(ctx, Message{Type: TypeIncident}))
	assert.Error(t, q.Publish(ctx, Message{Type: TypeIncident}))
}

func TestInMemory_ConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs, err := NewInMemory(1).Consume(ctx)
	require.NoError(t, err)
	cancel()
	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}
