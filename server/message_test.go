package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcs/ocpp/core"
	"evcs/utility"
)

func parseFrame(t *testing.T, raw string) []interface{} {
	t.Helper()
	data, err := utility.ParseJson([]byte(raw))
	require.NoError(t, err)
	return data
}

func TestMessageType(t *testing.T) {
	data := parseFrame(t, `[2,"uid-1","Heartbeat",{}]`)
	callType, err := MessageType(data)
	require.NoError(t, err)
	assert.Equal(t, CallTypeRequest, callType)

	data = parseFrame(t, `[3,"uid-1",{}]`)
	callType, err = MessageType(data)
	require.NoError(t, err)
	assert.Equal(t, CallTypeResult, callType)

	data = parseFrame(t, `[4,"uid-1","GenericError","failed",{}]`)
	callType, err = MessageType(data)
	require.NoError(t, err)
	assert.Equal(t, CallTypeError, callType)
}

func TestMessageTypeRejectsUnknownTypeId(t *testing.T) {
	data := parseFrame(t, `[7,"uid-1","Heartbeat"]`)
	_, err := MessageType(data)
	require.Error(t, err)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))
}

func TestMessageTypeRejectsShortFrame(t *testing.T) {
	data := parseFrame(t, `[2,"uid-1"]`)
	_, err := MessageType(data)
	require.Error(t, err)
}

func TestParseRequestBootNotification(t *testing.T) {
	data := parseFrame(t, `[2,"uid-1","BootNotification",{"chargePointVendor":"VendorX","chargePointModel":"ModelY","firmwareVersion":"1.2.3"}]`)
	request, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", request.UniqueId)
	assert.Equal(t, core.BootNotificationFeatureName, request.GetFeatureName())

	payload, ok := request.Payload.(*core.BootNotificationRequest)
	require.True(t, ok)
	assert.Equal(t, "VendorX", payload.ChargePointVendor)
	assert.Equal(t, "ModelY", payload.ChargePointModel)
	assert.Equal(t, "1.2.3", payload.FirmwareVersion)
}

func TestParseRequestStartTransaction(t *testing.T) {
	data := parseFrame(t, `[2,"uid-2","StartTransaction",{"connectorId":1,"idTag":"TAG1","meterStart":100,"timestamp":"2026-03-10T10:00:00Z"}]`)
	request, err := ParseRequest(data)
	require.NoError(t, err)

	payload, ok := request.Payload.(*core.StartTransactionRequest)
	require.True(t, ok)
	assert.Equal(t, 1, payload.ConnectorId)
	assert.Equal(t, "TAG1", payload.IdTag)
	assert.Equal(t, 100, payload.MeterStart)
	require.NotNil(t, payload.Timestamp)
}

func TestParseRequestValidationFailure(t *testing.T) {
	// idTag missing, connectorId zero
	data := parseFrame(t, `[2,"uid-3","StartTransaction",{"meterStart":100,"timestamp":"2026-03-10T10:00:00Z"}]`)
	_, err := ParseRequest(data)
	require.Error(t, err)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))
}

func TestParseRequestUnsupportedAction(t *testing.T) {
	data := parseFrame(t, `[2,"uid-4","NoSuchFeature",{}]`)
	_, err := ParseRequest(data)
	require.Error(t, err)
	assert.Equal(t, utility.CodeValidation, utility.CodeOf(err))
}

func TestParseRequestRejectsResultFrame(t *testing.T) {
	data := parseFrame(t, `[3,"uid-5","Heartbeat",{}]`)
	_, err := ParseRequest(data)
	require.Error(t, err)
}

func TestParseRequestHeartbeatEmptyPayload(t *testing.T) {
	data := parseFrame(t, `[2,"uid-6","Heartbeat",{}]`)
	request, err := ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, core.HeartbeatFeatureName, request.GetFeatureName())
}

func TestParseResultUnchecked(t *testing.T) {
	data := parseFrame(t, `[3,"uid-7",{"status":"Accepted"}]`)
	result, err := ParseResultUnchecked(data)
	require.NoError(t, err)
	assert.Equal(t, "uid-7", result.UniqueId)
	assert.JSONEq(t, `{"status":"Accepted"}`, result.Payload)
}

func TestCallMarshal(t *testing.T) {
	call := &Call{
		TypeId:   CallTypeRequest,
		UniqueId: "uid-8",
		Feature:  core.ResetFeatureName,
		Payload:  core.NewResetRequest(core.ResetTypeSoft),
	}
	data, err := call.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[2,"uid-8","Reset",{"type":"Soft"}]`, string(data))
}

func TestCallResultMarshal(t *testing.T) {
	callResult, err := CreateCallResult(&core.StatusNotificationResponse{}, "uid-9")
	require.NoError(t, err)
	data, err := callResult.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[3,"uid-9",{}]`, string(data))
}

func TestCallErrorMarshal(t *testing.T) {
	callError := CreateCallError("uid-10", "FormationViolation", "bad payload")
	data, err := callError.MarshalJSON()
	require.NoError(t, err)

	var fields []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	require.Len(t, fields, 5)
	assert.Equal(t, "4", string(fields[0]))
	assert.Equal(t, `"uid-10"`, string(fields[1]))
	assert.Equal(t, `"FormationViolation"`, string(fields[2]))
}
