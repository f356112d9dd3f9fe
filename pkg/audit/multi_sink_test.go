package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	events []*SecurityEvent
	logErr error
	closed bool
}

func (s *memorySink) Log(_ context.Context, event *SecurityEvent) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func TestMultiSink_FansOut(t *testing.T) {
	a := &memorySink{}
	b := &memorySink{}
	multi := NewMultiSink(a, b)

	require.NoError(t, multi.Log(context.Background(), testEvent("e1", "u1")))
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)

	require.NoError(t, multi.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiSink_FailingSinkDoesNotBlockOthers(t *testing.T) {
	boom := errors.New("disk full")
	a := &memorySink{logErr: boom}
	b := &memorySink{}
	multi := NewMultiSink(a, b)

	err := multi.Log(context.Background(), testEvent("e1", "u1"))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, b.events, 1, "healthy sink still receives the event")
}

func TestSecurityEventJSONRoundTrip(t *testing.T) {
	event := testEvent("e1", "u1")

	data, err := event.ToJSON()
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

func TestNopSink(t *testing.T) {
	sink := NopSink{}
	assert.NoError(t, sink.Log(context.Background(), testEvent("e1", "u1")))
	assert.NoError(t, sink.Close())
}
