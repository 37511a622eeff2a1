package multiplayer

import "sync"

// Subscriber is the transport-neutral handle a room broadcasts to.
// It lets rooms push events without depending on WebSocket or Bubble Tea.
type Subscriber interface {
	// ID returns the unique subscriber identifier.
	ID() SubscriberID

	// Send delivers an event without blocking. It returns false when the
	// subscriber is gone or cannot keep up; the room then drops it.
	Send(evt Event) bool

	// Done returns a channel that closes when the subscriber ends.
	Done() <-chan struct{}
}

// ChannelSession is a Subscriber backed by a buffered Go channel.
// Used by in-process clients such as the terminal UI.
type ChannelSession struct {
	id       SubscriberID
	events   chan Event
	done     chan struct{}
	doneOnce sync.Once
}

// NewChannelSession creates a new channel-based subscriber.
// bufferSize controls how many events can be buffered before dropping.
func NewChannelSession(id SubscriberID, bufferSize int) *ChannelSession {
	if bufferSize < 1 {
		bufferSize = 64
	}
	return &ChannelSession{
		id:     id,
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// ID returns the subscriber identifier.
func (s *ChannelSession) ID() SubscriberID {
	return s.id
}

// Send queues an event. If the buffer is full the oldest event is dropped
// and the send retried once; a second failure reports the session as stuck.
func (s *ChannelSession) Send(evt Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- evt:
		return true
	default:
	}

	select {
	case <-s.events:
	default:
	}

	select {
	case s.events <- evt:
		return true
	default:
		return false
	}
}

// Events returns the channel to receive events from.
func (s *ChannelSession) Events() <-chan Event {
	return s.events
}

// Done returns the done channel.
func (s *ChannelSession) Done() <-chan struct{} {
	return s.done
}

// Close marks the session as done.
// Safe to call multiple times.
func (s *ChannelSession) Close() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}
