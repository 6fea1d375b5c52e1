package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcs/utility"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()
	ws := &WebSocket{id: "cp1"}

	registry.Register("cp1", ws)
	found, err := registry.Lookup("cp1")
	require.NoError(t, err)
	assert.Same(t, ws, found)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryLookupUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Lookup("cp1")
	require.Error(t, err)
	assert.Equal(t, utility.CodeNotConnected, utility.CodeOf(err))
}

func TestRegistryLookupClosedSocket(t *testing.T) {
	registry := NewRegistry()
	ws := &WebSocket{id: "cp1"}
	registry.Register("cp1", ws)
	ws.markClosed()

	_, err := registry.Lookup("cp1")
	require.Error(t, err)
	assert.Equal(t, utility.CodeNotConnected, utility.CodeOf(err))
}

func TestRegistryReconnectReplacesSession(t *testing.T) {
	registry := NewRegistry()
	old := &WebSocket{id: "cp1"}
	registry.Register("cp1", old)
	old.markClosed()

	fresh := &WebSocket{id: "cp1"}
	registry.Register("cp1", fresh)

	found, err := registry.Lookup("cp1")
	require.NoError(t, err)
	assert.Same(t, fresh, found)
	assert.Equal(t, 1, registry.Count())
}

func TestRegistryUnregisterMatchesSocket(t *testing.T) {
	registry := NewRegistry()
	old := &WebSocket{id: "cp1"}
	registry.Register("cp1", old)
	old.markClosed()

	fresh := &WebSocket{id: "cp1"}
	registry.Register("cp1", fresh)

	// close of the stale socket must not evict the fresh session
	registry.Unregister("cp1", old)
	found, err := registry.Lookup("cp1")
	require.NoError(t, err)
	assert.Same(t, fresh, found)
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	ws := &WebSocket{id: "cp1"}
	registry.Register("cp1", ws)

	registry.Unregister("cp1", ws)
	assert.Equal(t, 0, registry.Count())
	_, err := registry.Lookup("cp1")
	require.Error(t, err)
}

func TestRegistryHeartbeatUnknownIsNoOp(t *testing.T) {
	registry := NewRegistry()
	registry.Heartbeat("cp1")
	assert.Equal(t, 0, registry.Count())
}

func TestRegistryListAll(t *testing.T) {
	registry := NewRegistry()
	registry.Register("cp1", &WebSocket{id: "cp1"})
	registry.Register("cp2", &WebSocket{id: "cp2"})

	infos := registry.ListAll()
	require.Len(t, infos, 2)
	ids := []string{infos[0].ChargePointId, infos[1].ChargePointId}
	assert.Contains(t, ids, "cp1")
	assert.Contains(t, ids, "cp2")
	for _, info := range infos {
		assert.True(t, info.IsConnected)
		assert.False(t, info.ConnectedAt.IsZero())
	}
}
