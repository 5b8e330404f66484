package broadcast

import (
	"errors"
	"sync"
)

var (
	// ErrObserverClosed is returned by Send after Close.
	ErrObserverClosed = errors.New("observer closed")
	// ErrObserverLagging is returned when the observer's buffer is full.
	ErrObserverLagging = errors.New("observer lagging")
)

// ChannelObserver buffers frames on a channel for a consumer goroutine, such
// as a websocket writer.
type ChannelObserver struct {
	mu     sync.Mutex
	frames chan []byte
	closed bool
}

// NewChannelObserver returns an observer with room for buffer pending frames.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelObserver{frames: make(chan []byte, buffer)}
}

// Send enqueues frame without blocking. A full buffer closes the observer so
// the consumer sees the end of Frames instead of a silent gap.
func (o *ChannelObserver) Send(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrObserverClosed
	}
	select {
	case o.frames <- frame:
		return nil
	default:
		o.closed = true
		close(o.frames)
		return ErrObserverLagging
	}
}

// Frames returns the channel of pending frames. It is closed by Close.
func (o *ChannelObserver) Frames() <-chan []byte {
	return o.frames
}

// Close stops accepting frames. Safe to call more than once.
func (o *ChannelObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.frames)
}
