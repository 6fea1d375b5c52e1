package server

import (
	"fmt"
	"time"

	"evcs/ocpp"
	"evcs/ocpp/core"
	"evcs/ocpp/firmware"
	"evcs/ocpp/localauth"
	"evcs/ocpp/remotetrigger"
	"evcs/ocpp/reservation"
	"evcs/types"
	"evcs/utility"
)

const DefaultCommandTimeout = 30 * time.Second

// Send issues an outbound call and races the answer against the timeout.
// A missing session fails fast with NotConnected. A timed out wait is a
// hard cancellation of waiting only; the charger-side effect cannot be
// cancelled, and a late answer is logged when it eventually arrives.
func (cs *CentralSystem) Send(chargePointId string, request ocpp.Request, timeout time.Duration) (string, error) {
	ws, err := cs.registry.Lookup(chargePointId)
	if err != nil {
		return "", err
	}
	if err = validate.Struct(request); err != nil {
		return "", utility.ValidationErr(fmt.Sprintf("%s: %s", request.GetFeatureName(), err))
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}

	call := &Call{
		TypeId:   CallTypeRequest,
		UniqueId: utility.NewUUID(),
		Feature:  request.GetFeatureName(),
		Payload:  request,
	}
	data, err := call.MarshalJSON()
	if err != nil {
		return "", utility.InternalErr("encoding request", err)
	}

	response := make(chan string, 1)
	cs.addPending(call.UniqueId, response)
	defer cs.removePending(call.UniqueId)

	if err = cs.server.SendData(ws, data); err != nil {
		return "", utility.InternalErr(fmt.Sprintf("sending %s to %s", call.Feature, chargePointId), err)
	}
	cs.logger.FeatureEvent(call.Feature, chargePointId, fmt.Sprintf("sent command %s", call.UniqueId))

	select {
	case payload := <-response:
		return payload, nil
	case <-time.After(timeout):
		observeCommandTimeout(call.Feature, chargePointId)
		return "", utility.TimeoutErr(fmt.Sprintf("no response for %s from %s within %v", call.Feature, chargePointId, timeout))
	}
}

func (cs *CentralSystem) ChangeAvailability(chargePointId string, connectorId int, kind types.AvailabilityType) (string, error) {
	if kind != types.AvailabilityTypeOperative && kind != types.AvailabilityTypeInoperative {
		return "", utility.ValidationErr(fmt.Sprintf("invalid availability type: %s", kind))
	}
	return cs.Send(chargePointId, core.NewChangeAvailabilityRequest(connectorId, kind), DefaultCommandTimeout)
}

func (cs *CentralSystem) ChangeConfiguration(chargePointId, key, value string) (string, error) {
	if key == "" {
		return "", utility.ValidationErr("configuration key is required")
	}
	return cs.Send(chargePointId, core.NewChangeConfigurationRequest(key, value), DefaultCommandTimeout)
}

func (cs *CentralSystem) ClearCache(chargePointId string) (string, error) {
	return cs.Send(chargePointId, core.NewClearCacheRequest(), DefaultCommandTimeout)
}

func (cs *CentralSystem) GetConfiguration(chargePointId string, keys []string) (string, error) {
	return cs.Send(chargePointId, core.NewGetConfigurationRequest(keys), DefaultCommandTimeout)
}

// RemoteStartTransaction asks the charger to start charging for a tag.
// The charger holds the authorized tag for roughly 120 seconds before it
// expires unused; the RPC itself still answers within the usual timeout.
func (cs *CentralSystem) RemoteStartTransaction(chargePointId, idTag string, connectorId int) (string, error) {
	if idTag == "" {
		return "", utility.ValidationErr("id tag is required")
	}
	request := core.NewRemoteStartTransactionRequest(idTag)
	if connectorId > 0 {
		request.ConnectorId = &connectorId
	}
	return cs.Send(chargePointId, request, DefaultCommandTimeout)
}

func (cs *CentralSystem) RemoteStopTransaction(chargePointId string, transactionId int) (string, error) {
	if transactionId <= 0 {
		return "", utility.ValidationErr("transaction id is required")
	}
	return cs.Send(chargePointId, core.NewRemoteStopTransactionRequest(transactionId), DefaultCommandTimeout)
}

func (cs *CentralSystem) Reset(chargePointId string, kind core.ResetType) (string, error) {
	if kind != core.ResetTypeHard && kind != core.ResetTypeSoft {
		return "", utility.ValidationErr(fmt.Sprintf("invalid reset type: %s", kind))
	}
	return cs.Send(chargePointId, core.NewResetRequest(kind), DefaultCommandTimeout)
}

func (cs *CentralSystem) UnlockConnector(chargePointId string, connectorId int) (string, error) {
	if connectorId <= 0 {
		return "", utility.ValidationErr("connector id is required")
	}
	return cs.Send(chargePointId, core.NewUnlockConnectorRequest(connectorId), DefaultCommandTimeout)
}

func (cs *CentralSystem) GetDiagnostics(chargePointId, location string) (string, error) {
	if location == "" {
		return "", utility.ValidationErr("upload location is required")
	}
	return cs.Send(chargePointId, firmware.NewGetDiagnosticsRequest(location), DefaultCommandTimeout)
}

func (cs *CentralSystem) UpdateFirmware(chargePointId, location string, retrieveDate *types.DateTime) (string, error) {
	if location == "" {
		return "", utility.ValidationErr("download location is required")
	}
	if retrieveDate == nil {
		retrieveDate = types.NewDateTime(time.Now())
	}
	return cs.Send(chargePointId, firmware.NewUpdateFirmwareRequest(location, retrieveDate), DefaultCommandTimeout)
}

func (cs *CentralSystem) SendLocalList(chargePointId string, version int, updateType localauth.UpdateType) (string, error) {
	if updateType != localauth.UpdateTypeDifferential && updateType != localauth.UpdateTypeFull {
		return "", utility.ValidationErr(fmt.Sprintf("invalid update type: %s", updateType))
	}
	return cs.Send(chargePointId, localauth.NewSendLocalListRequest(version, updateType), DefaultCommandTimeout)
}

func (cs *CentralSystem) GetLocalListVersion(chargePointId string) (string, error) {
	return cs.Send(chargePointId, localauth.NewGetLocalListVersionRequest(), DefaultCommandTimeout)
}

func (cs *CentralSystem) ReserveNow(chargePointId string, connectorId int, expiryDate *types.DateTime, idTag string, reservationId int) (string, error) {
	if idTag == "" {
		return "", utility.ValidationErr("id tag is required")
	}
	if expiryDate == nil {
		return "", utility.ValidationErr("expiry date is required")
	}
	request := reservation.NewReserveNowRequest(connectorId, expiryDate, idTag)
	request.ReservationId = reservationId
	return cs.Send(chargePointId, request, DefaultCommandTimeout)
}

func (cs *CentralSystem) TriggerMessage(chargePointId string, message string, connectorId int) (string, error) {
	trigger := remotetrigger.MessageTrigger(message)
	if !remotetrigger.IsValidTrigger(trigger) {
		return "", utility.ValidationErr(fmt.Sprintf("invalid message trigger: %s", message))
	}
	return cs.Send(chargePointId, remotetrigger.NewTriggerMessageRequest(trigger, connectorId), DefaultCommandTimeout)
}
