package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcs/ocpp/core"
	"evcs/utility"
)

func newTestCentralSystem() *CentralSystem {
	return &CentralSystem{
		registry:        NewRegistry(),
		pendingRequests: make(map[string]chan string),
	}
}

func TestSendNotConnectedFailsFast(t *testing.T) {
	cs := newTestCentralSystem()

	_, err := cs.Send("cp1", core.NewClearCacheRequest(), DefaultCommandTimeout)
	require.Error(t, err)
	assert.Equal(t, utility.CodeNotConnected, utility.CodeOf(err))
}

func TestSendRejectsInvalidRequest(t *testing.T) {
	cs := newTestCentralSystem()
	cs.registry.Register("cp1", &WebSocket{id: "cp1"})

	// reset type is required
	_, err := cs.Send("cp1", &core.ResetRequest{}, DefaultCommandTimeout)
	require.Error(t, err)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))
}

func TestCommandInputValidation(t *testing.T) {
	cs := newTestCentralSystem()

	_, err := cs.ChangeAvailability("cp1", 1, "Sometimes")
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.ChangeConfiguration("cp1", "", "value")
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.RemoteStartTransaction("cp1", "", 1)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.RemoteStopTransaction("cp1", 0)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.Reset("cp1", "Medium")
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.UnlockConnector("cp1", 0)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.GetDiagnostics("cp1", "")
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.UpdateFirmware("cp1", "", nil)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.SendLocalList("cp1", 1, "Partial")
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.ReserveNow("cp1", 1, nil, "TAG1", 1)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))

	_, err = cs.TriggerMessage("cp1", "NoSuchMessage", 1)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))
}

func TestResolvePending(t *testing.T) {
	cs := newTestCentralSystem()
	response := make(chan string, 1)
	cs.addPending("uid-1", response)

	assert.True(t, cs.resolvePending("uid-1", `{"status":"Accepted"}`))
	assert.Equal(t, `{"status":"Accepted"}`, <-response)

	cs.removePending("uid-1")
	assert.False(t, cs.resolvePending("uid-1", "{}"))
}

func TestResolvePendingUnknownId(t *testing.T) {
	cs := newTestCentralSystem()
	assert.False(t, cs.resolvePending("never-sent", "{}"))
}
