package server

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"evcs/ocpp"
	"evcs/ocpp/core"
	"evcs/ocpp/firmware"
	"evcs/utility"
)

var validate = validator.New()

type CallType int

const (
	CallTypeRequest CallType = 2
	CallTypeResult  CallType = 3
	CallTypeError   CallType = 4
)

func MessageType(data []interface{}) (CallType, error) {
	if len(data) < 3 {
		return 0, utility.ValidationErr("incompatible message structure")
	}
	rawTypeId, ok := data[0].(float64)
	if !ok {
		return 0, utility.ValidationErr("invalid message type id")
	}
	callType := CallType(rawTypeId)
	switch callType {
	case CallTypeRequest, CallTypeResult, CallTypeError:
		return callType, nil
	}
	return 0, utility.ValidationErr(fmt.Sprintf("unsupported message type id: %v", rawTypeId))
}

// Call An OCPP-J Call message, carrying an outbound Request.
type Call struct {
	TypeId   CallType
	UniqueId string
	Feature  string
	Payload  ocpp.Request
}

func (call *Call) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 4)
	fields[0] = int(call.TypeId)
	fields[1] = call.UniqueId
	fields[2] = call.Feature
	fields[3] = call.Payload
	return json.Marshal(fields)
}

// CallResult An OCPP-J CallResult message, containing an OCPP Response.
type CallResult struct {
	TypeId   CallType
	UniqueId string
	Payload  ocpp.Response
}

func (callResult *CallResult) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 3)
	fields[0] = int(callResult.TypeId)
	fields[1] = callResult.UniqueId
	fields[2] = callResult.Payload
	return json.Marshal(fields)
}

func CreateCallResult(confirmation ocpp.Response, uniqueId string) (*CallResult, error) {
	callResult := CallResult{
		TypeId:   CallTypeResult,
		UniqueId: uniqueId,
		Payload:  confirmation,
	}
	return &callResult, nil
}

// CallError An OCPP-J CallError message.
type CallError struct {
	TypeId      CallType
	UniqueId    string
	Code        string
	Description string
}

func (callError *CallError) MarshalJSON() ([]byte, error) {
	fields := make([]interface{}, 5)
	fields[0] = int(callError.TypeId)
	fields[1] = callError.UniqueId
	fields[2] = callError.Code
	fields[3] = callError.Description
	fields[4] = struct{}{}
	return json.Marshal(fields)
}

func CreateCallError(uniqueId, code, description string) *CallError {
	return &CallError{
		TypeId:      CallTypeError,
		UniqueId:    uniqueId,
		Code:        code,
		Description: description,
	}
}

type CallRequest struct {
	TypeId   CallType
	UniqueId string
	feature  string
	Payload  ocpp.Request
}

func (callRequest *CallRequest) GetFeatureName() string {
	return callRequest.feature
}

// RawResult is an incoming CallResult before correlation; the payload is
// kept as raw JSON for the waiting command to decode.
type RawResult struct {
	UniqueId string
	Payload  string
}

func ParseResultUnchecked(data []interface{}) (*RawResult, error) {
	if len(data) < 3 {
		return nil, utility.ValidationErr("incompatible result structure")
	}
	uniqueId, ok := data[1].(string)
	if !ok {
		return nil, utility.ValidationErr("invalid unique id in result")
	}
	payload, err := json.Marshal(data[2])
	if err != nil {
		return nil, err
	}
	return &RawResult{
		UniqueId: uniqueId,
		Payload:  string(payload),
	}, nil
}

func ParseRequest(data []interface{}) (*CallRequest, error) {
	if len(data) != 4 {
		return nil, utility.ValidationErr("unsupported request format; expected length: 4 elements")
	}
	rawTypeId, ok := data[0].(float64)
	if !ok {
		return nil, utility.ValidationErr("invalid message type in request")
	}
	typeId := CallType(rawTypeId)
	if typeId != CallTypeRequest {
		return nil, utility.ValidationErr(fmt.Sprintf("invalid request type id: %v", typeId))
	}
	uniqueId, ok := data[1].(string)
	if !ok {
		return nil, utility.ValidationErr("invalid message unique id in request")
	}
	action, ok := data[2].(string)
	if !ok {
		return nil, utility.ValidationErr("invalid action in request")
	}

	requestType, err := getRequestType(action)
	if err != nil {
		return nil, err
	}
	request, err := ParseRawJsonRequest(data[3], requestType)
	if err != nil {
		return nil, err
	}
	if err = validate.Struct(request); err != nil {
		return nil, utility.ValidationErr(fmt.Sprintf("%s: %s", action, err))
	}
	callRequest := CallRequest{
		TypeId:   typeId,
		UniqueId: uniqueId,
		feature:  action,
		Payload:  request,
	}
	return &callRequest, nil
}

func getRequestType(action string) (requestType reflect.Type, err error) {
	switch action {
	case core.BootNotificationFeatureName:
		requestType = reflect.TypeOf(core.BootNotificationRequest{})
	case core.AuthorizeFeatureName:
		requestType = reflect.TypeOf(core.AuthorizeRequest{})
	case core.HeartbeatFeatureName:
		requestType = reflect.TypeOf(core.HeartbeatRequest{})
	case core.StartTransactionFeatureName:
		requestType = reflect.TypeOf(core.StartTransactionRequest{})
	case core.StopTransactionFeatureName:
		requestType = reflect.TypeOf(core.StopTransactionRequest{})
	case core.MeterValuesFeatureName:
		requestType = reflect.TypeOf(core.MeterValuesRequest{})
	case core.StatusNotificationFeatureName:
		requestType = reflect.TypeOf(core.StatusNotificationRequest{})
	case core.DataTransferFeatureName:
		requestType = reflect.TypeOf(core.DataTransferRequest{})
	case firmware.DiagnosticsStatusNotificationFeatureName:
		requestType = reflect.TypeOf(firmware.DiagnosticsStatusNotificationRequest{})
	case firmware.StatusNotificationFeatureName:
		requestType = reflect.TypeOf(firmware.StatusNotificationRequest{})
	default:
		return nil, utility.ValidationErr(fmt.Sprintf("unsupported action requested: %s", action))
	}
	return requestType, nil
}

func ParseRawJsonRequest(raw interface{}, requestType reflect.Type) (ocpp.Request, error) {
	if raw == nil {
		raw = &struct{}{}
	}
	bytes, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	request := reflect.New(requestType).Interface()
	err = json.Unmarshal(bytes, &request)
	if err != nil {
		return nil, err
	}
	result := request.(ocpp.Request)
	return result, nil
}
