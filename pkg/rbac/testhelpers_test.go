package rbac

import (
	"context"
	"sync"
	"time"

	"github.com/lopanhq/gatekeeper/pkg/audit"
	"github.com/lopanhq/gatekeeper/pkg/identity"
)

// fakeClock is a manually advanced clock for deterministic tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorderSink captures emitted security events.
type recorderSink struct {
	mu     sync.Mutex
	events []*audit.SecurityEvent
}

func (s *recorderSink) Log(_ context.Context, event *audit.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recorderSink) Close() error { return nil }

func (s *recorderSink) Events() []*audit.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*audit.SecurityEvent(nil), s.events...)
}

func (s *recorderSink) CountByType(event audit.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.events {
		if e.Event == event {
			count++
		}
	}
	return count
}

func testUser(id string, roles ...Role) *identity.User {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return &identity.User{ID: id, Name: id, Active: true, Roles: names}
}

func userCtx(user *identity.User) context.Context {
	return identity.WithUser(context.Background(), user)
}

func newTestEngine(clock *fakeClock, sink audit.Sink) *Engine {
	if sink == nil {
		sink = audit.NopSink{}
	}
	opts := Options{
		Audit: sink,
	}
	if clock != nil {
		opts.Clock = clock.Now
	}
	return NewEngine(opts)
}
