package pool

import "context"

// acquireResult is delivered exactly once to a waiting acquireWaiter.
type acquireResult struct {
	entry *poolEntry
	err   error
}

// acquireWaiter is spec §3's AcquireRequest: a future/promise cell, a
// deadline (carried by ctx), a requireNew flag, resolved in arrival
// order per address (spec §4.1, §5).
type acquireWaiter struct {
	ctx        context.Context
	requireNew bool
	resultCh   chan acquireResult
	// resolved is set under the slot's pool lock once a result has been
	// (or is about to be) sent, so a timed-out waiter racing with
	// Release knows whether to still read resultCh.
	resolved bool
}

func newAcquireWaiter(ctx context.Context, requireNew bool) *acquireWaiter {
	return &acquireWaiter{
		ctx:        ctx,
		requireNew: requireNew,
		resultCh:   make(chan acquireResult, 1),
	}
}
