package engine

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrSimulationDisconnected is returned to the render side once the
// simulation goroutine has exited.
var ErrSimulationDisconnected = errors.New("engine: simulation disconnected")

// The default capacity of the handoff message channels.
const DefaultChannelDepth = 4

// SlotMsg announces that a slot holds the triangles produced by tick Seq.
type SlotMsg struct {
	Slot int
	Seq  uint64
}

// ParamsMsg carries the params produced by tick Seq.
type ParamsMsg struct {
	Params EngineParams
	Seq    uint64
}

type slot struct {
	mu  sync.RWMutex
	buf TriangleBuffer
	seq uint64
}

// Handoff double buffers simulation state between a publishing simulation
// goroutine and a subscribing render goroutine. The publisher always writes
// the slot the subscriber was not told about most recently; each tick it
// announces the freshly written slot and the matching params on two
// channels. Full channels lose their oldest messages so the newest
// announcement is always buffered. Neither side ever blocks on the other.
type Handoff struct {
	slots    [2]slot
	slotCh   chan SlotMsg
	paramsCh chan ParamsMsg

	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewHandoff creates a handoff whose channels buffer up to depth messages
// and returns its two ends.
func NewHandoff(depth int) (*Publisher, *Subscriber) {
	if depth <= 0 {
		depth = DefaultChannelDepth
	}
	h := &Handoff{
		slotCh:   make(chan SlotMsg, depth),
		paramsCh: make(chan ParamsMsg, depth),
	}
	return &Publisher{h: h}, &Subscriber{h: h}
}

// Publisher is the simulation end of a Handoff. It must only be used by a
// single goroutine.
type Publisher struct {
	h        *Handoff
	writable int
	seq      uint64
}

// Publish copies buf into the writable slot, announces it together with
// params and flips the writable slot. When a channel is full its oldest
// message is dropped to make room. Publish returns the sequence number
// assigned to this update.
func (p *Publisher) Publish(buf *TriangleBuffer, params EngineParams) uint64 {
	p.seq++
	written := p.writable

	s := &p.h.slots[written]
	s.mu.Lock()
	s.buf.CopyFrom(buf)
	s.seq = p.seq
	s.mu.Unlock()

	params.Seq = p.seq
	offer(p.h.slotCh, SlotMsg{Slot: written, Seq: p.seq}, &p.h.dropped)
	offer(p.h.paramsCh, ParamsMsg{Params: params, Seq: p.seq}, &p.h.dropped)

	p.writable = 1 - written
	return p.seq
}

// Send msg on ch without blocking, evicting buffered messages from the head
// of ch until it fits. Only the publisher sends on ch.
func offer[T any](ch chan T, msg T, dropped *atomic.Uint64) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}

		select {
		case <-ch:
			dropped.Inc()
		default:
		}
	}
}

// Dropped returns the number of messages evicted because a channel was full.
func (p *Publisher) Dropped() uint64 {
	return p.h.dropped.Load()
}

// Close signals the subscriber that no more updates will be published.
func (p *Publisher) Close() {
	p.h.closeOnce.Do(func() {
		close(p.h.slotCh)
		close(p.h.paramsCh)
	})
}

// Frame is a consistent snapshot of triangles and params from a single tick.
type Frame struct {
	Triangles TriangleBuffer
	Params    EngineParams
}

// Subscriber is the render end of a Handoff. It must only be used by a
// single goroutine.
type Subscriber struct {
	h *Handoff

	pendingSlot   *SlotMsg
	pendingParams *ParamsMsg

	frame   Frame
	applied bool
}

// Latest drains all pending handoff messages and returns the newest frame
// for which both the triangle slot and the params have arrived. The returned
// bool is true if the frame changed since the previous call. The frame is
// owned by the subscriber and is only valid until the next call.
//
// Once the publisher is closed and all messages are drained Latest returns
// ErrSimulationDisconnected.
func (s *Subscriber) Latest() (*Frame, bool, error) {
	disconnected := s.drain()
	updated := s.apply()
	if disconnected && !updated {
		return &s.frame, false, ErrSimulationDisconnected
	}
	return &s.frame, updated, nil
}

// Drain both channels without blocking keeping the newest message of each.
// Returns true if a channel has been closed.
func (s *Subscriber) drain() bool {
	closed := false
	for done := false; !done; {
		select {
		case msg, ok := <-s.h.slotCh:
			if !ok {
				closed, done = true, true
				break
			}
			s.pendingSlot = &msg
		default:
			done = true
		}
	}
	for done := false; !done; {
		select {
		case msg, ok := <-s.h.paramsCh:
			if !ok {
				closed, done = true, true
				break
			}
			s.pendingParams = &msg
		default:
			done = true
		}
	}
	return closed
}

// Apply the pending pair if both halves belong to the same tick.
func (s *Subscriber) apply() bool {
	if s.pendingSlot == nil || s.pendingParams == nil || s.pendingSlot.Seq != s.pendingParams.Seq {
		return false
	}
	if s.applied && s.pendingSlot.Seq <= s.frame.Params.Seq {
		return false
	}

	slot := &s.h.slots[s.pendingSlot.Slot]
	slot.mu.RLock()
	defer slot.mu.RUnlock()

	// The publisher may have already reused the slot for a newer tick; the
	// announcement for that tick is still in flight.
	if slot.seq != s.pendingSlot.Seq {
		return false
	}

	s.frame.Triangles.CopyFrom(&slot.buf)
	s.frame.Params = s.pendingParams.Params
	s.applied = true
	return true
}
