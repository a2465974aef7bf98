package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ironforged/events"
	"ironforged/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessagePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeMessagePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func (f *fakeMessagePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

func TestNATSEventPublisher_Envelope(t *testing.T) {
	t.Parallel()

	fake := &fakeMessagePublisher{}
	publisher := NewNATSEventPublisher(fake)
	fixed := time.Date(2024, 11, 5, 18, 30, 0, 0, time.UTC)
	publisher.now = func() time.Time { return fixed }

	memberID := uuid.New()
	err := publisher.Publish(context.Background(), events.IngotsChangeEvent{
		MemberID:   memberID,
		DiscordID:  555,
		OldBalance: 1000,
		NewBalance: 0,
		Quantity:   -1000,
		ChangeType: models.ChangeTypeRemoveIngots,
	})
	require.NoError(t, err)

	require.Len(t, fake.subjects, 1)
	assert.Equal(t, "ironforged.ingots_change", fake.subjects[0])

	var envelope EventEnvelope
	require.NoError(t, json.Unmarshal(fake.payloads[0], &envelope))
	assert.Equal(t, "ingots_change", envelope.EventType)
	assert.Equal(t, "ironforged-bot", envelope.SourceService)
	assert.True(t, envelope.Timestamp.Equal(fixed))
	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	var payload events.IngotsChangeEvent
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.Equal(t, memberID, payload.MemberID)
	assert.Equal(t, int64(-1000), payload.Quantity)
}

func TestNATSEventPublisher_ReportsOutcome(t *testing.T) {
	t.Parallel()

	fake := &fakeMessagePublisher{err: errors.New("no responders")}
	publisher := NewNATSEventPublisher(fake)

	var reported error
	publisher.OnPublished = func(_ events.EventType, err error) { reported = err }

	err := publisher.Publish(context.Background(), events.MemberCreatedEvent{})
	assert.Error(t, err)
	assert.Equal(t, fake.err, reported)
}

func TestNATSEventPublisher_ForwardsBusEvents(t *testing.T) {
	t.Parallel()

	fake := &fakeMessagePublisher{}
	publisher := NewNATSEventPublisher(fake)
	bus := events.NewBus()
	publisher.Forward(bus)

	bus.Emit(context.Background(), events.MemberStatusChangeEvent{Active: true})

	assert.Eventually(t, func() bool { return fake.count() == 1 }, time.Second, 10*time.Millisecond)
}
