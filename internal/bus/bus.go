// Package bus implements the two-queue message bus that sits between
// channel adapters, the agent worker, subagents, and the cron scheduler.
// Grounded on message_bus.hpp.
package bus

import (
	"sync"
	"time"

	"github.com/attoclaw/gateway/internal/envelope"
	"github.com/attoclaw/gateway/internal/observability"
	"github.com/attoclaw/gateway/internal/queue"
)

// Capacities match spec.md §4.1: 1024 per queue.
const (
	InboundQueueCapacity  = 1024
	OutboundQueueCapacity = 1024
)

// backoffSpins is the number of busy-spin attempts before falling back to a
// short sleep when a publish finds the ring full (message_bus.hpp's
// backoff()).
const backoffSpins = 64

const backoffSleep = 100 * time.Microsecond

// OutboundCallback receives outbound envelopes published on channels it is
// subscribed to.
type OutboundCallback func(envelope.Outbound)

// Bus couples an inbound and an outbound ring queue with per-queue
// occupancy semaphores and an outbound dispatcher with a per-channel
// subscriber table.
type Bus struct {
	log *observability.Logger

	inbound   *queue.Ring[envelope.Inbound]
	inboundS  *countingSemaphore
	outbound  *queue.Ring[envelope.Outbound]
	outboundS *countingSemaphore

	subMu sync.Mutex
	subs  map[string][]OutboundCallback

	dispatcherWG   sync.WaitGroup
	dispatcherOnce sync.Once
}

// New builds a bus with the spec's fixed queue capacities.
func New(log *observability.Logger) *Bus {
	return &Bus{
		log:       log,
		inbound:   queue.NewRing[envelope.Inbound](InboundQueueCapacity),
		inboundS:  newCountingSemaphore(InboundQueueCapacity),
		outbound:  queue.NewRing[envelope.Outbound](OutboundQueueCapacity),
		outboundS: newCountingSemaphore(OutboundQueueCapacity),
		subs:      make(map[string][]OutboundCallback),
	}
}

func backoff(spins int) {
	if spins < backoffSpins {
		// yield; on most Go schedulers a channel-free busy spin also works,
		// but a zero-length sleep cooperatively yields the P.
		time.Sleep(0)
		return
	}
	time.Sleep(backoffSleep)
}

// PublishInbound never drops: it retries with backoff until the push
// succeeds, then releases the semaphore.
func (b *Bus) PublishInbound(m envelope.Inbound) {
	for spins := 0; !b.inbound.TryPush(m); spins++ {
		backoff(spins)
	}
	b.inboundS.Release()
}

// PublishOutbound never drops; see PublishInbound.
func (b *Bus) PublishOutbound(m envelope.Outbound) {
	for spins := 0; !b.outbound.TryPush(m); spins++ {
		backoff(spins)
	}
	b.outboundS.Release()
}

// ConsumeInbound blocks until an inbound envelope is available.
func (b *Bus) ConsumeInbound() envelope.Inbound {
	b.inboundS.Acquire()
	var m envelope.Inbound
	for !b.inbound.TryPop(&m) {
		// semaphore said a slot is occupied; a concurrent popper may have
		// raced us between sequence-check windows, retry briefly.
		time.Sleep(0)
	}
	return m
}

// ConsumeOutbound blocks until an outbound envelope is available.
func (b *Bus) ConsumeOutbound() envelope.Outbound {
	b.outboundS.Acquire()
	var m envelope.Outbound
	for !b.outbound.TryPop(&m) {
		time.Sleep(0)
	}
	return m
}

// TryConsumeInbound is non-blocking; used by the cancellation poll and the
// post-turn system drain.
func (b *Bus) TryConsumeInbound() (envelope.Inbound, bool) {
	if !b.inboundS.TryAcquire() {
		return envelope.Inbound{}, false
	}
	var m envelope.Inbound
	for !b.inbound.TryPop(&m) {
		time.Sleep(0)
	}
	return m, true
}

// SubscribeOutbound registers cb for channel; multiple subscribers per
// channel are invoked in registration order.
func (b *Bus) SubscribeOutbound(channel string, cb OutboundCallback) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[channel] = append(b.subs[channel], cb)
}

// StartDispatcher spawns the single outbound-consuming worker. Safe to call
// once; subsequent calls are no-ops.
func (b *Bus) StartDispatcher() {
	b.dispatcherOnce.Do(func() {
		b.dispatcherWG.Add(1)
		go b.dispatchLoop()
	})
}

func (b *Bus) dispatchLoop() {
	defer b.dispatcherWG.Done()
	for {
		m := b.ConsumeOutbound()
		if m.IsEmpty() {
			return
		}
		b.subMu.Lock()
		cbs := append([]OutboundCallback(nil), b.subs[m.Channel]...)
		b.subMu.Unlock()

		for _, cb := range cbs {
			b.invokeSubscriber(cb, m)
		}
	}
}

func (b *Bus) invokeSubscriber(cb OutboundCallback, m envelope.Outbound) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("outbound subscriber panic on channel %q: %v", m.Channel, r)
		}
	}()
	cb(m)
}

// StopDispatcher wakes the dispatcher with an empty sentinel envelope and
// waits for it to exit.
func (b *Bus) StopDispatcher() {
	b.PublishOutbound(envelope.Outbound{})
	b.dispatcherWG.Wait()
}
