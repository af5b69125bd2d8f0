package realtime

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func TestDecodeEvent(t *testing.T) {
	evt, err := DecodeEvent(`{"event":"UPDATE","room_id":"r1","record":{"id":"g1"},"old_record":null}`)
	require.NoError(t, err)
	assert.Equal(t, EventUpdate, evt.Event)
	assert.Equal(t, "r1", evt.RoomID)
	assert.JSONEq(t, `{"id":"g1"}`, string(evt.Record))
	assert.Nil(t, evt.OldRecord)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	cases := []string{
		`not json`,
		`{"event":"TRUNCATE","room_id":"r1"}`,
		`{"event":"INSERT"}`,
	}
	for _, payload := range cases {
		_, err := DecodeEvent(payload)
		assert.True(t, errors.Is(err, ErrInvalidEvent), payload)
	}
}

func TestHub_FanOutByRoom(t *testing.T) {
	pub := &recordingPublisher{}
	hub := NewHub(zap.NewNop(), pub)

	a1 := hub.Subscribe("room-a")
	a2 := hub.Subscribe("room-a")
	b := hub.Subscribe("room-b")
	defer a1.Close()
	defer a2.Close()
	defer b.Close()

	hub.Broadcast(Event{Event: EventInsert, RoomID: "room-a"})

	for _, sub := range []*Subscription{a1, a2} {
		select {
		case evt := <-sub.C:
			assert.Equal(t, "room-a", evt.RoomID)
		case <-time.After(time.Second):
			t.Fatal("订阅者未收到事件")
		}
	}

	select {
	case <-b.C:
		t.Fatal("其他房间不应收到事件")
	default:
	}

	assert.Len(t, pub.events, 1)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("room-a")
	assert.Equal(t, 1, hub.SubscriberCount("room-a"))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount("room-a"))

	_, open := <-sub.C
	assert.False(t, open)
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sub := hub.Subscribe("room-a")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Broadcast(Event{Event: EventUpdate, RoomID: "room-a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast 不应阻塞")
	}
	assert.Len(t, sub.C, subscriberBuffer)
}

func TestHub_PublisherErrorIgnored(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	hub := NewHub(zap.NewNop(), pub)
	hub.Broadcast(Event{Event: EventDelete, RoomID: "room-a"})
	assert.Len(t, pub.events, 1)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "stadium/rooms/r1/guests", Topic("stadium", "r1"))
}
