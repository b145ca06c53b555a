package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
	"github.com/neo4j/neo4j-go-driver/v5/internal/pool"
	"github.com/neo4j/neo4j-go-driver/v5/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a minimal db.Connection double shared across this file.
type fakeConn struct {
	address         db.Address
	protocolVersion string
	closed          bool
}

func (c *fakeConn) Address() db.Address                                   { return c.address }
func (c *fakeConn) AuthToken() db.AuthToken                                { return db.NewAuthToken("none", nil) }
func (c *fakeConn) IdleSince() int64                                       { return 0 }
func (c *fakeConn) ResetAndFlush(ctx context.Context) error                { return nil }
func (c *fakeConn) HandleAndTransformError(err error, _ db.Address) error  { return err }
func (c *fakeConn) Release()                                               {}
func (c *fakeConn) ProtocolVersion() string                                { return c.protocolVersion }
func (c *fakeConn) Close(ctx context.Context) error                        { c.closed = true; return nil }

// fakeFactory creates one *fakeConn per address and never fails, unless
// address.HostPort() is present in failAddresses.
type fakeFactory struct {
	mu            sync.Mutex
	failAddresses map[string]bool
	created       []db.Address
}

func newFakeFactory(failAddresses ...string) *fakeFactory {
	f := &fakeFactory{failAddresses: make(map[string]bool)}
	for _, a := range failAddresses {
		f.failAddresses[a] = true
	}
	return f
}

func (f *fakeFactory) Create(ctx context.Context, address db.Address, _ func()) (db.Connection, error) {
	f.mu.Lock()
	f.created = append(f.created, address)
	f.mu.Unlock()
	if f.failAddresses[address.HostPort()] {
		return nil, errors.New("dial refused")
	}
	return &fakeConn{address: address, protocolVersion: "4.4.0"}, nil
}
func (f *fakeFactory) Destroy(db.Connection)                         {}
func (f *fakeFactory) ValidateOnAcquire(context.Context, db.Connection) bool { return true }
func (f *fakeFactory) ValidateOnRelease(db.Connection) bool                 { return true }
func (f *fakeFactory) InstallIdleObserver(db.Connection, func(error))       {}
func (f *fakeFactory) RemoveIdleObserver(db.Connection)                     {}

// fakeResolver returns a fixed address list for the seed, or an error.
type fakeResolver struct {
	addresses []db.Address
	err       error
}

func (r *fakeResolver) Resolve(context.Context, db.Address) ([]db.Address, error) {
	return r.addresses, r.err
}

// fakeRunner answers RequestRoutingTable with a scripted sequence of
// results, one per call, repeating the last entry once exhausted.
type fakeRunner struct {
	mu      sync.Mutex
	results []runnerResult
	calls   []db.Address
}

type runnerResult struct {
	record *db.RoutingProcedureRecord
	err    error
}

func (r *fakeRunner) RequestRoutingTable(_ context.Context, conn db.Connection, _ map[string]string, _, _ string, _ []string) (*db.RoutingProcedureRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, conn.Address())
	if len(r.results) == 0 {
		return nil, errors.New("no script configured")
	}
	idx := len(r.calls) - 1
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	res := r.results[idx]
	return res.record, res.err
}

func mustAddr(hostPort string) db.Address {
	a, err := db.ParseAddress(hostPort)
	if err != nil {
		panic(err)
	}
	return a
}

func newTestProvider(factory db.ConnectionFactory, resolver db.HostNameResolver, runner db.RoutingProcedureRunner, seed db.Address) *Provider {
	return New(Config{
		Pool:     pool.New(factory, pool.Config{}),
		Registry: routing.New(0, nil),
		Resolver: resolver,
		Runner:   runner,
		Seed:     seed,
	})
}

func validRecord(router, reader, writer db.Address) *db.RoutingProcedureRecord {
	return &db.RoutingProcedureRecord{
		TTLSeconds: 300,
		Servers: []db.RoutingProcedureServer{
			{Role: db.RoleRoute, Addresses: []db.Address{router}},
			{Role: db.RoleRead, Addresses: []db.Address{reader}},
			{Role: db.RoleWrite, Addresses: []db.Address{writer}},
		},
	}
}

func TestAcquireRejectsIllegalAccessMode(t *testing.T) {
	seed := mustAddr("seed:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)

	_, err := p.Acquire(context.Background(), AccessRequest{AccessMode: routing.AccessMode(99), Database: "neo4j"})

	require.Error(t, err)
	assert.ErrorIs(t, err, db.IsKind(db.KindIllegalAccessMode))
}

func TestAcquireBuildsTableAndReturnsDelegateConnection(t *testing.T) {
	seed := mustAddr("seed:7687")
	reader := mustAddr("reader:7687")
	writer := mustAddr("writer:7687")
	runner := &fakeRunner{results: []runnerResult{{record: validRecord(seed, reader, writer)}}}
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, runner, seed)

	conn, err := p.Acquire(context.Background(), AccessRequest{AccessMode: routing.AccessModeRead, Database: "neo4j"})

	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, reader, conn.Address())
	_, ok := conn.(*delegateConnection)
	assert.True(t, ok)
}

func TestAcquireReusesFreshTableWithoutRefreshing(t *testing.T) {
	seed := mustAddr("seed:7687")
	reader := mustAddr("reader:7687")
	writer := mustAddr("writer:7687")
	runner := &fakeRunner{results: []runnerResult{{record: validRecord(seed, reader, writer)}}}
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, runner, seed)

	_, err := p.Acquire(context.Background(), AccessRequest{AccessMode: routing.AccessModeRead, Database: "neo4j"})
	require.NoError(t, err)
	_, err = p.Acquire(context.Background(), AccessRequest{AccessMode: routing.AccessModeRead, Database: "neo4j"})
	require.NoError(t, err)

	assert.Len(t, runner.calls, 1)
}

func TestAcquireReturnsSessionExpiredWhenRoleHasNoServers(t *testing.T) {
	seed := mustAddr("seed:7687")
	reader := mustAddr("reader:7687")
	record := &db.RoutingProcedureRecord{
		TTLSeconds: 300,
		Servers: []db.RoutingProcedureServer{
			{Role: db.RoleRoute, Addresses: []db.Address{seed}},
			{Role: db.RoleRead, Addresses: []db.Address{reader}},
		},
	}
	runner := &fakeRunner{results: []runnerResult{{record: record}}}
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, runner, seed)

	_, err := p.Acquire(context.Background(), AccessRequest{AccessMode: routing.AccessModeWrite, Database: "neo4j"})

	require.Error(t, err)
	assert.ErrorIs(t, err, db.IsKind(db.KindSessionExpired))
}

func TestRefreshFallsBackToNextRouterWhenFirstRefusesConnection(t *testing.T) {
	bad := mustAddr("bad:7687")
	good := mustAddr("good:7687")
	reader := mustAddr("reader:7687")
	writer := mustAddr("writer:7687")
	factory := newFakeFactory(bad.HostPort())
	runner := &fakeRunner{results: []runnerResult{{record: validRecord(good, reader, writer)}}}
	p := newTestProvider(factory, &fakeResolver{addresses: []db.Address{bad, good}}, runner, bad)

	table, err := p.refresh(context.Background(), AccessRequest{Database: "neo4j"})

	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, []db.Address{good}, table.Routers)
}

func TestRefreshSkipsRouterThatYieldsEmptyRouterList(t *testing.T) {
	empty := mustAddr("empty:7687")
	good := mustAddr("good:7687")
	reader := mustAddr("reader:7687")
	writer := mustAddr("writer:7687")
	emptyRecord := &db.RoutingProcedureRecord{TTLSeconds: 300, Servers: []db.RoutingProcedureServer{
		{Role: db.RoleRead, Addresses: []db.Address{reader}},
	}}
	runner := &fakeRunner{results: []runnerResult{
		{record: emptyRecord},
		{record: validRecord(good, reader, writer)},
	}}
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{empty, good}}, runner, empty)

	table, err := p.refresh(context.Background(), AccessRequest{Database: "neo4j"})

	require.NoError(t, err)
	require.NotNil(t, table)
	assert.Equal(t, []db.Address{good}, table.Routers)
}

func TestRefreshPropagatesRediscoveryErrorWithoutTryingMoreRouters(t *testing.T) {
	router := mustAddr("router:7687")
	other := mustAddr("other:7687")
	wantErr := db.NewDatabaseNotFound("database %q does not exist", "neo4j")
	runner := &fakeRunner{results: []runnerResult{{err: wantErr}}}
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{router, other}}, runner, router)

	_, err := p.refresh(context.Background(), AccessRequest{Database: "neo4j"})

	assert.Same(t, wantErr, err)
	assert.Len(t, runner.calls, 1)
}

func TestRefreshExhaustsAllCandidatesBeforeFailing(t *testing.T) {
	r1 := mustAddr("r1:7687")
	r2 := mustAddr("r2:7687")
	factory := newFakeFactory(r1.HostPort(), r2.HostPort())
	runner := &fakeRunner{}
	p := newTestProvider(factory, &fakeResolver{addresses: []db.Address{r1, r2}}, runner, r1)

	_, err := p.refresh(context.Background(), AccessRequest{Database: "neo4j"})

	require.Error(t, err)
	assert.ErrorIs(t, err, db.IsKind(db.KindServiceUnavailable))
}

func TestRefreshResolverErrorIsServiceUnavailable(t *testing.T) {
	seed := mustAddr("seed:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{err: errors.New("dns failure")}, &fakeRunner{}, seed)

	_, err := p.refresh(context.Background(), AccessRequest{Database: "neo4j"})

	require.Error(t, err)
	assert.ErrorIs(t, err, db.IsKind(db.KindServiceUnavailable))
}

func TestCandidateRoutersUsesTableRoutersWhenFreshAndSeedNotForced(t *testing.T) {
	seed := mustAddr("seed:7687")
	tableRouter := mustAddr("table-router:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	current := routing.NewTable("neo4j", []db.Address{tableRouter}, nil, nil, 60000, 0)

	candidates, err := p.candidateRouters(context.Background(), "neo4j", current)

	require.NoError(t, err)
	assert.Equal(t, []db.Address{tableRouter}, candidates)
}

func TestCandidateRoutersFallsBackToSeedWhenTableHasNoRouters(t *testing.T) {
	seed := mustAddr("seed:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)

	candidates, err := p.candidateRouters(context.Background(), "neo4j", nil)

	require.NoError(t, err)
	assert.Equal(t, []db.Address{seed}, candidates)
}

func TestCandidateRoutersUsesSeedFirstWhenUseSeedRouterIsSet(t *testing.T) {
	seed := mustAddr("seed:7687")
	tableRouter := mustAddr("table-router:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	p.setUseSeedRouter("neo4j", true)
	current := routing.NewTable("neo4j", []db.Address{tableRouter}, nil, nil, 60000, 0)

	candidates, err := p.candidateRouters(context.Background(), "neo4j", current)

	require.NoError(t, err)
	assert.Equal(t, []db.Address{seed, tableRouter}, candidates)
}

func TestAppendNewDeduplicatesPreservingFirstOccurrenceOrder(t *testing.T) {
	a := mustAddr("a:1")
	b := mustAddr("b:1")
	c := mustAddr("c:1")

	out := appendNew([]db.Address{a, b}, []db.Address{b, c})

	assert.Equal(t, []db.Address{a, b, c}, out)
}

func TestAcceptTableFlipsUseSeedRouterWhenWritersEmpty(t *testing.T) {
	seed := mustAddr("seed:7687")
	reader := mustAddr("reader:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	table := routing.NewTable("neo4j", []db.Address{seed}, []db.Address{reader}, nil, 60000, 0)

	p.acceptTable("neo4j", table)

	assert.True(t, p.getUseSeedRouter("neo4j"))
	assert.Same(t, table, p.registry.Get("neo4j"))
}

func TestAcceptTableClearsUseSeedRouterWhenWriterPresent(t *testing.T) {
	seed := mustAddr("seed:7687")
	writer := mustAddr("writer:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	p.setUseSeedRouter("neo4j", true)
	table := routing.NewTable("neo4j", []db.Address{seed}, nil, []db.Address{writer}, 60000, 0)

	p.acceptTable("neo4j", table)

	assert.False(t, p.getUseSeedRouter("neo4j"))
}

func TestGetUseSeedRouterDefaultsToConfiguredDefault(t *testing.T) {
	seed := mustAddr("seed:7687")
	p := New(Config{
		Pool:               pool.New(newFakeFactory(), pool.Config{}),
		Registry:           routing.New(0, nil),
		Resolver:           &fakeResolver{addresses: []db.Address{seed}},
		Runner:             &fakeRunner{},
		Seed:               seed,
		UseSeedRouterFirst: true,
	})

	assert.True(t, p.getUseSeedRouter("neo4j"))
	assert.True(t, p.getUseSeedRouter("other"))
}

func TestForgetRemovesAddressAndPurgesPool(t *testing.T) {
	seed := mustAddr("seed:7687")
	victim := mustAddr("victim:7687")
	factory := newFakeFactory()
	p := newTestProvider(factory, &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	table := routing.NewTable("neo4j", []db.Address{victim}, []db.Address{victim}, []db.Address{victim}, 60000, 0)
	p.registry.Register(table)
	_, err := p.pool.Acquire(context.Background(), victim, pool.AcquireOptions{})
	require.NoError(t, err)

	p.Forget("neo4j", victim)

	assert.NotContains(t, p.registry.Get("neo4j").Readers, victim)
}

func TestForgetWriterOnlyAffectsWritersAndDoesNotPurge(t *testing.T) {
	seed := mustAddr("seed:7687")
	victim := mustAddr("victim:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	table := routing.NewTable("neo4j", []db.Address{victim}, []db.Address{victim}, []db.Address{victim}, 60000, 0)
	p.registry.Register(table)

	p.ForgetWriter("neo4j", victim)

	updated := p.registry.Get("neo4j")
	assert.Contains(t, updated.Readers, victim)
	assert.NotContains(t, updated.Writers, victim)
}

func TestCloseClosesUnderlyingPool(t *testing.T) {
	seed := mustAddr("seed:7687")
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{seed}}, &fakeRunner{}, seed)
	_, err := p.pool.Acquire(context.Background(), seed, pool.AcquireOptions{})
	require.NoError(t, err)

	p.Close()

	_, err = p.pool.Acquire(context.Background(), seed, pool.AcquireOptions{})
	assert.ErrorIs(t, err, db.IsKind(db.KindPoolClosed))
}
