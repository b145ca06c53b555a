package pool

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
)

// addressSlot is the per-address unit of mutation (spec §5): an idle
// list, an in-use set, a pending-acquire FIFO queue and creation
// counters. All mutations on a single slot are serialized by the
// owning Pool's mutex, mirroring the teacher's conn_pool.go guarding
// every field with one sync.Cond.L.
type addressSlot struct {
	address  db.Address
	idle     *list.List // of *poolEntry, head = oldest (spec §4.1 FIFO)
	inUse    map[db.Connection]*poolEntry
	waiters  *list.List // of *acquireWaiter, head = earliest arrival
	creating int
}

func newAddressSlot(address db.Address) *addressSlot {
	return &addressSlot{
		address: address,
		idle:    list.New(),
		inUse:   make(map[db.Connection]*poolEntry),
		waiters: list.New(),
	}
}

// activeCount is |in-use| + |creation-in-flight| (spec invariant P2).
func (s *addressSlot) activeCount() int {
	return len(s.inUse) + s.creating
}

// Pool is spec §4.1's Resource Pool: per-address idle pools, bounded
// concurrency, serialized acquisitions under pressure, destroy on
// validation failure or purge. Grounded on the teacher's hand-rolled
// conn_pool.go (sync.Cond-guarded FIFO pool with inProgressConnects
// accounting), generalized from one address to many.
type Pool struct {
	mu                 sync.Mutex
	factory            db.ConnectionFactory
	maxPoolSize        int // 0 = unbounded (spec §6.4, §8)
	acquisitionTimeout time.Duration
	livenessTimeout    time.Duration // negative disables (spec §4.6)
	logger             db.Logger
	tracer             db.Tracer

	slots     map[string]*addressSlot
	closed    bool
	generation uint64
}

// Config bundles the knobs Pool needs out of db.Config (spec §6.4).
type Config struct {
	MaxPoolSize                    int
	AcquisitionTimeout             time.Duration
	ConnectionLivenessCheckTimeout time.Duration
	Logger                         db.Logger
	Tracer                         db.Tracer
}

// New constructs a Pool bound to factory.
func New(factory db.ConnectionFactory, cfg Config) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = discardLogger{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = db.NoopTracer{}
	}
	return &Pool{
		factory:            factory,
		maxPoolSize:        cfg.MaxPoolSize,
		acquisitionTimeout: cfg.AcquisitionTimeout,
		livenessTimeout:    cfg.ConnectionLivenessCheckTimeout,
		logger:             logger,
		tracer:             tracer,
		slots:              make(map[string]*addressSlot),
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func (p *Pool) slotFor(address db.Address) *addressSlot {
	key := address.HostPort()
	s, ok := p.slots[key]
	if !ok {
		s = newAddressSlot(address)
		p.slots[key] = s
	}
	return s
}

// AcquireOptions mirrors spec §3's AcquireRequest options.
type AcquireOptions struct {
	RequireNew bool
}

// Acquire returns a connection for address (spec §4.1). Fails with
// db.ErrPoolClosed if the pool is closed, or AcquisitionTimeout if
// maxPoolSize > 0 and no connection becomes available within
// acquisitionTimeoutMs.
func (p *Pool) Acquire(ctx context.Context, address db.Address, opts AcquireOptions) (db.Connection, error) {
	ctx = p.tracer.TraceAcquireStart(ctx, address)
	conn, err := p.acquire(ctx, address, opts)
	p.tracer.TraceAcquireEnd(ctx, address, err)
	return conn, err
}

func (p *Pool) acquire(ctx context.Context, address db.Address, opts AcquireOptions) (db.Connection, error) {
	if opts.RequireNew {
		p.evictOneForRequireNew(address)
	}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, db.ErrPoolClosed
		}
		slot := p.slotFor(address)

		if !opts.RequireNew {
			if entry := p.popIdleLocked(slot); entry != nil {
				p.mu.Unlock()
				if p.validateOnAcquire(ctx, entry) {
					p.mu.Lock()
					entry.state = stateInUse
					slot.inUse[entry.conn] = entry
					p.mu.Unlock()
					return entry.conn, nil
				}
				p.destroyEntryUnlocked(entry)
				continue
			}
		}

		if p.maxPoolSize == 0 || slot.activeCount() < p.maxPoolSize {
			slot.creating++
			p.mu.Unlock()

			entry, err := p.createEntry(ctx, address)

			p.mu.Lock()
			slot.creating--
			if err != nil {
				p.mu.Unlock()
				p.failOldestWaiterIfAny(slot)
				return nil, err
			}
			entry.state = stateInUse
			slot.inUse[entry.conn] = entry
			p.mu.Unlock()
			return entry.conn, nil
		}

		// At capacity: enqueue, FIFO, with a deadline measured from now
		// (spec §4.1: "measured from the moment the request is
		// enqueued, not from the start of acquire").
		waiter := newAcquireWaiter(ctx, opts.RequireNew)
		elem := slot.waiters.PushBack(waiter)
		p.mu.Unlock()

		res, timedOut := p.waitFor(ctx, waiter)
		if timedOut {
			p.mu.Lock()
			if !waiter.resolved {
				slot.waiters.Remove(elem)
				p.mu.Unlock()
				p.logger.Warn("acquisition timed out", "address", address.HostPort())
				return nil, db.NewAcquisitionTimeout(address.HostPort(), "timed out waiting for a connection to %s", address)
			}
			p.mu.Unlock()
			res = <-waiter.resultCh
		}
		if res.err != nil {
			return nil, res.err
		}
		return res.entry.conn, nil
	}
}

// waitFor blocks until the waiter is resolved or its context (or the
// pool's configured acquisitionTimeout, whichever is sooner) fires.
// A single waiter is only ever watched once, so a bare ctx.Done() is
// enough; no need for a reusable watch-many-contexts helper.
func (p *Pool) waitFor(ctx context.Context, waiter *acquireWaiter) (acquireResult, bool) {
	deadlineCtx := ctx
	var cancel context.CancelFunc
	if p.acquisitionTimeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, p.acquisitionTimeout)
		defer cancel()
	}

	select {
	case res := <-waiter.resultCh:
		return res, false
	case <-deadlineCtx.Done():
		return acquireResult{}, true
	}
}

// popIdleLocked pops the head (oldest) idle entry, if any. Caller holds
// p.mu.
func (p *Pool) popIdleLocked(slot *addressSlot) *poolEntry {
	front := slot.idle.Front()
	if front == nil {
		return nil
	}
	slot.idle.Remove(front)
	return front.Value.(*poolEntry)
}

func (p *Pool) createEntry(ctx context.Context, address db.Address) (*poolEntry, error) {
	gen := atomic.AddUint64(&p.generation, 1)
	key := address.HostPort()
	var conn db.Connection
	conn, err := p.factory.Create(ctx, address, func() { p.Release(address, conn) })
	if err != nil {
		return nil, db.NewServiceUnavailable("failed to create connection to %s: %s", key, err)
	}
	return &poolEntry{conn: conn, address: address, generation: gen, state: stateInUse}, nil
}

// Release returns conn to the idle list for its address, running
// ValidateOnRelease first and resolving the oldest pending waiter, if
// any (spec §4.1). Grounded on conn_pool.go's Release + cond.Signal.
func (p *Pool) Release(address db.Address, conn db.Connection) {
	ctx := p.tracer.TraceReleaseStart(context.Background(), address)
	defer p.tracer.TraceReleaseEnd(ctx, address, nil)

	p.mu.Lock()
	slot, ok := p.slots[address.HostPort()]
	if !ok {
		p.mu.Unlock()
		return
	}
	entry, ok := slot.inUse[conn]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(slot.inUse, conn)

	if entry.purged || !p.factory.ValidateOnRelease(conn) {
		p.mu.Unlock()
		p.factory.Destroy(conn)
		p.mu.Lock()
		p.dispatchToWaiterOrLeaveIdleLocked(slot, nil)
		p.mu.Unlock()
		return
	}

	entry.state = stateIdle
	entry.idleSince = time.Now()
	p.factory.InstallIdleObserver(conn, func(err error) { p.onIdleError(address, entry, err) })
	p.dispatchToWaiterOrLeaveIdleLocked(slot, entry)
	p.mu.Unlock()
}

// dispatchToWaiterOrLeaveIdleLocked hands entry (possibly nil, meaning
// "a slot just freed up") to the oldest pending waiter for slot if one
// exists; otherwise, if entry is non-nil, appends it to the idle tail.
// Caller holds p.mu.
func (p *Pool) dispatchToWaiterOrLeaveIdleLocked(slot *addressSlot, entry *poolEntry) {
	front := slot.waiters.Front()
	if front == nil {
		if entry != nil {
			slot.idle.PushBack(entry)
		}
		return
	}
	waiter := front.Value.(*acquireWaiter)
	slot.waiters.Remove(front)
	waiter.resolved = true

	if entry != nil {
		p.factory.RemoveIdleObserver(entry.conn)
		entry.state = stateInUse
		slot.inUse[entry.conn] = entry
		waiter.resultCh <- acquireResult{entry: entry}
		return
	}

	// A slot freed up but no entry to hand over directly (e.g. the
	// released connection failed validation and was destroyed): create
	// a fresh one on the waiter's behalf.
	slot.creating++
	go func() {
		newEntry, err := p.createEntry(waiter.ctx, slot.address)
		p.mu.Lock()
		slot.creating--
		if err != nil {
			p.mu.Unlock()
			waiter.resultCh <- acquireResult{err: err}
			return
		}
		newEntry.state = stateInUse
		slot.inUse[newEntry.conn] = newEntry
		p.mu.Unlock()
		waiter.resultCh <- acquireResult{entry: newEntry}
	}()
}

func (p *Pool) failOldestWaiterIfAny(slot *addressSlot) {
	p.mu.Lock()
	front := slot.waiters.Front()
	if front == nil {
		p.mu.Unlock()
		return
	}
	slot.waiters.Remove(front)
	waiter := front.Value.(*acquireWaiter)
	waiter.resolved = true
	p.mu.Unlock()
	waiter.resultCh <- acquireResult{err: db.NewServiceUnavailable("failed to create a replacement connection to %s", slot.address)}
}

func (p *Pool) onIdleError(address db.Address, entry *poolEntry, _ error) {
	p.mu.Lock()
	slot, ok := p.slots[address.HostPort()]
	if !ok {
		p.mu.Unlock()
		return
	}
	for e := slot.idle.Front(); e != nil; e = e.Next() {
		if e.Value.(*poolEntry) == entry {
			slot.idle.Remove(e)
			break
		}
	}
	p.mu.Unlock()
	p.destroyEntryUnlocked(entry)
}

func (p *Pool) destroyEntryUnlocked(entry *poolEntry) {
	entry.state = stateDestroyed
	p.factory.RemoveIdleObserver(entry.conn)
	p.factory.Destroy(entry.conn)
	db.NewAddressLogger(p.logger, entry.address.HostPort()).Debug("destroyed connection")
}

// evictOneForRequireNew destroys one idle (or marks one in-use for
// destruction on release) entry for address, to stay within
// maxPoolSize while still honoring a requireNew acquisition (spec
// §4.1).
func (p *Pool) evictOneForRequireNew(address db.Address) {
	p.mu.Lock()
	slot, ok := p.slots[address.HostPort()]
	if !ok || p.maxPoolSize == 0 || slot.activeCount() < p.maxPoolSize {
		p.mu.Unlock()
		return
	}
	if entry := p.popIdleLocked(slot); entry != nil {
		p.mu.Unlock()
		p.destroyEntryUnlocked(entry)
		return
	}
	for _, entry := range slot.inUse {
		entry.purged = true
		p.logger.Debug("marked in-use connection for destruction on release", "address", address.HostPort())
		break
	}
	p.mu.Unlock()
}

// Purge destroys all idle entries for address, marks in-use entries to
// be destroyed on release, and rejects pending acquire requests for
// that address (spec §4.1).
func (p *Pool) Purge(address db.Address) {
	p.mu.Lock()
	slot, ok := p.slots[address.HostPort()]
	if !ok {
		p.mu.Unlock()
		return
	}
	p.logger.Info("purging pool", "address", address.HostPort())
	var toDestroy []*poolEntry
	for e := slot.idle.Front(); e != nil; e = e.Next() {
		toDestroy = append(toDestroy, e.Value.(*poolEntry))
	}
	slot.idle.Init()
	for _, entry := range slot.inUse {
		entry.purged = true
	}
	var waiters []*acquireWaiter
	for e := slot.waiters.Front(); e != nil; e = e.Next() {
		w := e.Value.(*acquireWaiter)
		w.resolved = true
		waiters = append(waiters, w)
	}
	slot.waiters.Init()
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, entry := range toDestroy {
		wg.Add(1)
		go func(e *poolEntry) {
			defer wg.Done()
			p.destroyEntryUnlocked(e)
		}(entry)
	}
	wg.Wait()

	for _, w := range waiters {
		w.resultCh <- acquireResult{err: db.NewServiceUnavailable("pool for %s was purged", address)}
	}
}

// KeepAll purges every address-slot not present in addresses (spec
// §4.1, used by the routing provider after a table refresh).
func (p *Pool) KeepAll(addresses []db.Address) {
	keep := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		keep[a.HostPort()] = struct{}{}
	}
	p.mu.Lock()
	var toPurge []db.Address
	for key, slot := range p.slots {
		if _, ok := keep[key]; !ok {
			toPurge = append(toPurge, slot.address)
		}
	}
	p.mu.Unlock()
	for _, a := range toPurge {
		p.Purge(a)
	}
}

// Close purges every address and rejects future acquires with
// db.ErrPoolClosed. Idempotent (spec §4.1, §8).
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.logger.Info("closing pool")
	var addrs []db.Address
	for _, slot := range p.slots {
		addrs = append(addrs, slot.address)
	}
	p.mu.Unlock()

	for _, a := range addrs {
		p.Purge(a)
	}
}

// Has reports whether the pool currently tracks any connection (idle or
// in-use) for address.
func (p *Pool) Has(address db.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[address.HostPort()]
	if !ok {
		return false
	}
	return slot.idle.Len() > 0 || len(slot.inUse) > 0
}

// ActiveResourceCount returns |in-use|+|creating| for address (spec
// invariant P2, tested in §8).
func (p *Pool) ActiveResourceCount(address db.Address) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot, ok := p.slots[address.HostPort()]
	if !ok {
		return 0
	}
	return slot.activeCount()
}
