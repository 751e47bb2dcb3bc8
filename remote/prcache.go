package remote

import (
	"context"
	"sync"
)

type entryState int

const (
	entryPending entryState = iota
	entryResolved
)

// commitEntry is either a lookup in flight or its result.
// A resolved entry with a nil pr is a negative result.
type commitEntry struct {
	state entryState
	done  chan struct{}
	pr    *PullRequest
}

// commitCache holds the pull request found for each
// commit. Entries are only dropped by clear or when the
// lookup for that commit fails.
type commitCache struct {
	mu      sync.Mutex
	entries map[string]*commitEntry
}

func newCommitCache() *commitCache {
	return &commitCache{
		entries: make(map[string]*commitEntry),
	}
}

// start returns the entry for ref. leader is true when
// the entry was just created as pending and the caller
// must settle it with resolve or fail.
func (c *commitCache) start(ref string) (e *commitEntry, leader bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[ref]; ok {
		return e, false
	}

	e = &commitEntry{
		state: entryPending,
		done:  make(chan struct{}),
	}
	c.entries[ref] = e

	return e, true
}

// resolved returns the value of a settled entry.
func (c *commitCache) resolved(e *commitEntry) (*PullRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.state != entryResolved {
		return nil, false
	}

	return e.pr, true
}

// wait blocks until e settles or ctx is done. A failed
// lookup yields nil.
func (c *commitCache) wait(
	ctx context.Context,
	e *commitEntry,
) *PullRequest {
	if pr, ok := c.resolved(e); ok {
		return pr
	}

	select {
	case <-e.done:
		return e.pr
	case <-ctx.Done():
		return nil
	}
}

// resolve settles e with pr. An entry dropped by clear
// meanwhile stays dropped.
func (c *commitCache) resolve(e *commitEntry, pr *PullRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.pr = pr
	e.state = entryResolved
	close(e.done)
}

func (c *commitCache) fail(ref string, e *commitEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[ref] == e {
		delete(c.entries, ref)
	}

	close(e.done)
}

func (c *commitCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*commitEntry)
}

func (c *commitCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
