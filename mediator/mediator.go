// Package mediator decouples the polling loop from the views that consume its
// results. It carries two independent event streams: work ticks and selection changes.
package mediator

import (
	"sync"
)

// Subscription identifies a registered callback.
type Subscription uint64

type workSub struct {
	id Subscription
	fn func()
}

type selectionSub struct {
	id Subscription
	fn func(region string)
}

// Mediator delivers events synchronously, in subscription order, on the
// goroutine that sends them. Nothing is queued: subscribers that register after
// an event was sent never see it.
type Mediator struct {
	mu        sync.Mutex
	nextID    Subscription
	work      []workSub
	selection []selectionSub
}

// New creates an empty mediator.
func New() *Mediator {
	return &Mediator{}
}

// SubscribeWork registers fn for work ticks.
func (m *Mediator) SubscribeWork(fn func()) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.work = append(m.work, workSub{id: m.nextID, fn: fn})
	return m.nextID
}

// SubscribeSelection registers fn for selection changes.
func (m *Mediator) SubscribeSelection(fn func(region string)) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.selection = append(m.selection, selectionSub{id: m.nextID, fn: fn})
	return m.nextID
}

// Unsubscribe removes a subscription from whichever stream holds it. Unknown
// ids are ignored. It is safe to call from inside a callback.
func (m *Mediator) Unsubscribe(id Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.work {
		if s.id == id {
			m.work = append(m.work[:i:i], m.work[i+1:]...)
			return
		}
	}
	for i, s := range m.selection {
		if s.id == id {
			m.selection = append(m.selection[:i:i], m.selection[i+1:]...)
			return
		}
	}
}

// SendWork fires a work tick.
func (m *Mediator) SendWork() {
	m.mu.Lock()
	subs := m.work
	m.mu.Unlock()

	// callbacks run unlocked so they may subscribe or unsubscribe
	for _, s := range subs {
		s.fn()
	}
}

// SendSelection announces that the region of interest changed.
func (m *Mediator) SendSelection(region string) {
	m.mu.Lock()
	subs := m.selection
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(region)
	}
}
