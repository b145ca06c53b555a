package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/internal/db"
	"github.com/neo4j/neo4j-go-driver/v5/internal/pool"
	"github.com/neo4j/neo4j-go-driver/v5/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDelegate(t *testing.T, address db.Address) (*delegateConnection, *Provider) {
	t.Helper()
	p := newTestProvider(newFakeFactory(), &fakeResolver{addresses: []db.Address{address}}, &fakeRunner{}, address)
	table := routing.NewTable("neo4j", []db.Address{address}, []db.Address{address}, []db.Address{address}, 60000, 0)
	p.registry.Register(table)
	inner := &fakeConn{address: address, protocolVersion: "4.4.0"}
	return newDelegateConnection(inner, address, "neo4j", p), p
}

func TestHandleAndTransformErrorPassesThroughNonRoutingError(t *testing.T) {
	address := mustAddr("a:7687")
	d, _ := newTestDelegate(t, address)
	plain := errors.New("boom")

	got := d.HandleAndTransformError(plain, address)

	assert.Same(t, plain, got)
}

func TestHandleAndTransformErrorServiceUnavailableForgetsAddress(t *testing.T) {
	address := mustAddr("a:7687")
	d, p := newTestDelegate(t, address)
	_, err := p.pool.Acquire(context.Background(), address, pool.AcquireOptions{})
	require.NoError(t, err)
	wantErr := db.NewServiceUnavailable("no route to %s", address)

	got := d.HandleAndTransformError(wantErr, address)

	assert.Same(t, wantErr, got)
	assert.NotContains(t, p.registry.Get("neo4j").Readers, address)
}

func TestHandleAndTransformErrorSessionExpiredForgetsAddress(t *testing.T) {
	address := mustAddr("a:7687")
	d, p := newTestDelegate(t, address)
	wantErr := db.NewSessionExpired(address.HostPort(), "session expired")

	got := d.HandleAndTransformError(wantErr, address)

	assert.Same(t, wantErr, got)
	assert.NotContains(t, p.registry.Get("neo4j").Routers, address)
}

func TestHandleAndTransformErrorAuthorizationExpiredOnlyPurgesPool(t *testing.T) {
	address := mustAddr("a:7687")
	d, p := newTestDelegate(t, address)
	conn, err := p.pool.Acquire(context.Background(), address, pool.AcquireOptions{})
	require.NoError(t, err)
	wantErr := &db.RoutingError{Kind: db.KindAuthorizationExpired, Message: "token expired"}

	got := d.HandleAndTransformError(wantErr, address)

	assert.Same(t, wantErr, got)
	assert.Contains(t, p.registry.Get("neo4j").Routers, address)
	// The purge marked the in-use connection, so releasing it destroys it.
	p.pool.Release(address, conn)
	assert.False(t, p.pool.Has(address))
}

func TestHandleAndTransformErrorNotALeaderForgetsWriterAndTransformsError(t *testing.T) {
	address := mustAddr("a:7687")
	d, p := newTestDelegate(t, address)
	notLeader := &db.RoutingError{Kind: db.KindNotALeader, Message: "not a leader"}

	got := d.HandleAndTransformError(notLeader, address)

	require.Error(t, got)
	assert.NotSame(t, notLeader, got)
	assert.ErrorIs(t, got, db.IsKind(db.KindSessionExpired))
	assert.NotContains(t, p.registry.Get("neo4j").Writers, address)
	assert.Contains(t, p.registry.Get("neo4j").Readers, address)
}

func TestHandleAndTransformErrorForbiddenOnReadOnlyForgetsWriterAndTransformsError(t *testing.T) {
	address := mustAddr("a:7687")
	d, p := newTestDelegate(t, address)
	forbidden := &db.RoutingError{Kind: db.KindForbiddenOnReadOnlyDatabase, Message: "read-only"}

	got := d.HandleAndTransformError(forbidden, address)

	require.Error(t, got)
	assert.ErrorIs(t, got, db.IsKind(db.KindSessionExpired))
	assert.NotContains(t, p.registry.Get("neo4j").Writers, address)
}

func TestHandleAndTransformErrorDefaultKindPassesThroughUnchanged(t *testing.T) {
	address := mustAddr("a:7687")
	d, p := newTestDelegate(t, address)
	protocolErr := db.NewProtocolError("malformed response")

	got := d.HandleAndTransformError(protocolErr, address)

	assert.Same(t, protocolErr, got)
	assert.Contains(t, p.registry.Get("neo4j").Writers, address)
}

func TestDelegateConnectionPromotesEmbeddedMethods(t *testing.T) {
	address := mustAddr("a:7687")
	d, _ := newTestDelegate(t, address)

	assert.Equal(t, address, d.Address())
	assert.Equal(t, "4.4.0", d.ProtocolVersion())
	assert.NoError(t, d.Close(context.Background()))
}
