package ipc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/veridian-os/kernel/internal/ksync"
	"github.com/veridian-os/kernel/internal/ktypes"
)

// Channel is the buffered-async half of spec.md §4.9.2: a lock-free,
// single-slot-per-index ring buffer of power-of-two capacity. Open
// Question resolution (spec.md §9): this implementation is SPSC only —
// exactly one producer goroutine and one consumer goroutine per
// Channel. Multi-producer or multi-consumer use must go through an
// Endpoint instead; see DESIGN.md.
type Channel struct {
	SendID, RecvID uint64

	buf      []Message
	ready    []int32 // atomic per-slot publish flag
	capacity uint64
	mask     uint64

	writePos uint64 // atomic: next slot index a producer may reserve
	readPos  uint64 // atomic: next slot index the consumer will take

	sent, received, dropped, maxDepth uint64 // atomic stats

	subscribers []ktypes.Pid_t
	active      int32 // atomic bool
	waiters     *ksync.WaitQueue[uint64]
}

// NewChannel creates a channel with the given power-of-two capacity.
func NewChannel(sendID, recvID uint64, capacity int) *Channel {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ipc: channel capacity must be a power of two")
	}
	return &Channel{
		SendID:   sendID,
		RecvID:   recvID,
		buf:      make([]Message, capacity),
		ready:    make([]int32, capacity),
		capacity: uint64(capacity),
		mask:     uint64(capacity - 1),
		active:   1,
		waiters:  &ksync.WaitQueue[uint64]{},
	}
}

// Subscribe adds pid to the set woken after every publish (spec.md
// §4.9.2: "Subscribers (pids) are woken after publication").
func (c *Channel) Subscribe(pid ktypes.Pid_t) {
	c.subscribers = append(c.subscribers, pid)
}

// SendAsync reserves a slot via fetch-add on writePos and publishes the
// message; never blocks. Returns ECHANFULL (counted in the dropped
// statistic) if the ring is at capacity.
func (c *Channel) SendAsync(msg Message) ktypes.Err_t {
	if atomic.LoadUint64(&c.writePos)-atomic.LoadUint64(&c.readPos) >= c.capacity {
		atomic.AddUint64(&c.dropped, 1)
		return ktypes.ECHANFULL
	}
	pos := atomic.AddUint64(&c.writePos, 1) - 1
	slot := pos & c.mask
	c.buf[slot] = msg
	atomic.StoreInt32(&c.ready[slot], 1) // publish
	atomic.AddUint64(&c.sent, 1)
	c.bumpMaxDepth(pos - atomic.LoadUint64(&c.readPos) + 1)
	c.waiters.WakeAll()
	return 0
}

func (c *Channel) bumpMaxDepth(depth uint64) {
	for {
		cur := atomic.LoadUint64(&c.maxDepth)
		if depth <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&c.maxDepth, cur, depth) {
			return
		}
	}
}

// ReceiveAsync pops the next published slot via CAS on readPos; returns
// ECHANEMPTY without blocking if nothing is ready.
func (c *Channel) ReceiveAsync() (Message, ktypes.Err_t) {
	for {
		pos := atomic.LoadUint64(&c.readPos)
		slot := pos & c.mask
		if atomic.LoadInt32(&c.ready[slot]) == 0 {
			return Message{}, ktypes.ECHANEMPTY
		}
		msg := c.buf[slot]
		atomic.StoreInt32(&c.ready[slot], 0)
		if !atomic.CompareAndSwapUint64(&c.readPos, pos, pos+1) {
			atomic.StoreInt32(&c.ready[slot], 1)
			continue // another consumer raced us; SPSC usage never hits this
		}
		atomic.AddUint64(&c.received, 1)
		return msg, 0
	}
}

// ReceiveBlocking waits until a message is available, parking on the
// channel's wait queue between poll attempts (spec.md §4.9.2:
// "Suspension on empty uses the scheduler's wait queue"). Each park lasts
// at most receivePollInterval, so a publish that lands between the empty
// check and the park is still picked up by the next poll.
func (c *Channel) ReceiveBlocking(ctx context.Context) (Message, ktypes.Err_t) {
	for {
		if msg, err := c.ReceiveAsync(); err == 0 {
			return msg, 0
		}
		wctx, cancel := context.WithTimeout(ctx, receivePollInterval)
		c.waiters.Wait(wctx, 0)
		cancel()
		if ctx.Err() != nil {
			return Message{}, ktypes.EINTR
		}
	}
}

// receivePollInterval bounds one ReceiveBlocking park.
const receivePollInterval = time.Millisecond

// Stats reports the counters spec.md §4.9.2 names.
func (c *Channel) Stats() (sent, received, dropped, maxDepth uint64) {
	return atomic.LoadUint64(&c.sent), atomic.LoadUint64(&c.received),
		atomic.LoadUint64(&c.dropped), atomic.LoadUint64(&c.maxDepth)
}

// Close marks the channel inactive; further sends/receives still work
// mechanically but registry lookups should treat it as torn down.
func (c *Channel) Close() { atomic.StoreInt32(&c.active, 0) }

// Active reports whether the channel has been closed.
func (c *Channel) Active() bool { return atomic.LoadInt32(&c.active) != 0 }
