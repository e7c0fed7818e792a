package diagnostics

import (
	"context"
	"sync"
)

// FakeClient is an in-memory Client for tests.
type FakeClient struct {
	mu         sync.Mutex
	Milestones []*Milestone
	Closed     bool
	WriteErr   error
}

func (c *FakeClient) WriteMilestones(ctx context.Context, milestones []*Milestone) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.Milestones = append(c.Milestones, milestones...)
	return nil
}

func (c *FakeClient) Close() error { c.Closed = true; return nil }

// Snapshot returns a copy of the milestones recorded so far.
func (c *FakeClient) Snapshot() []*Milestone {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Milestone, len(c.Milestones))
	copy(out, c.Milestones)
	return out
}
