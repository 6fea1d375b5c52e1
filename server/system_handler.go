package server

import (
	"fmt"
	"sync"
	"time"

	"evcs/auth"
	"evcs/internal"
	"evcs/ledger"
	"evcs/models"
	"evcs/ocpp/core"
	"evcs/ocpp/firmware"
	"evcs/types"
	"evcs/utility"
)

type ChargePointState struct {
	status            core.ChargePointStatus
	diagnosticsStatus firmware.DiagnosticsStatus
	firmwareStatus    firmware.Status
	connectors        map[int]*models.Connector
	errorCode         core.ChargePointErrorCode
	model             models.ChargePoint
}

type SystemHandler struct {
	chargePoints      map[string]*ChargePointState
	database          internal.Database
	logger            internal.LogHandler
	eventHandlers     []internal.EventHandler
	authEngine        *auth.Engine
	ledger            *ledger.Ledger
	billing           internal.BillingService
	registry          *Registry
	trigger           *Trigger
	location          *time.Location
	heartbeatInterval int
	failOpen          bool
	debug             bool
	mux               sync.Mutex
}

func NewSystemHandler(location *time.Location) *SystemHandler {
	return &SystemHandler{
		chargePoints:      make(map[string]*ChargePointState),
		location:          location,
		heartbeatInterval: 600,
		failOpen:          true,
	}
}

func (h *SystemHandler) SetDatabase(database internal.Database) {
	h.database = database
}

func (h *SystemHandler) SetLogger(logger internal.LogHandler) {
	h.logger = logger
}

func (h *SystemHandler) SetEventHandler(eventHandler internal.EventHandler) {
	h.eventHandlers = append(h.eventHandlers, eventHandler)
}

func (h *SystemHandler) SetAuthEngine(engine *auth.Engine) {
	h.authEngine = engine
}

func (h *SystemHandler) SetLedger(l *ledger.Ledger) {
	h.ledger = l
}

func (h *SystemHandler) SetBillingService(billing internal.BillingService) {
	h.billing = billing
}

func (h *SystemHandler) SetRegistry(registry *Registry) {
	h.registry = registry
}

func (h *SystemHandler) SetTrigger(trigger *Trigger) {
	h.trigger = trigger
}

func (h *SystemHandler) SetParameters(debug bool, heartbeatInterval int, failOpen bool) {
	h.debug = debug
	if heartbeatInterval > 0 {
		h.heartbeatInterval = heartbeatInterval
	}
	h.failOpen = failOpen
}

func (h *SystemHandler) OnStart() error {
	if h.database == nil {
		return nil
	}
	chargePoints, err := h.database.GetChargePoints()
	if err != nil {
		return fmt.Errorf("failed to load charge points from database: %s", err)
	}
	connectors, err := h.database.GetConnectors("")
	if err != nil {
		return fmt.Errorf("failed to load connectors from database: %s", err)
	}

	h.mux.Lock()
	defer h.mux.Unlock()
	for _, cp := range chargePoints {
		state := &ChargePointState{
			connectors: make(map[int]*models.Connector),
			model:      cp,
		}
		state.status = core.GetStatus(cp.Status)
		state.errorCode = core.GetErrorCode(cp.ErrorCode)
		if !cp.IsEnabled {
			state.status = core.ChargePointStatusUnavailable
		}
		for _, c := range connectors {
			if c.ChargePointId == cp.Id {
				c.Init()
				state.connectors[c.Id] = c
			}
		}
		h.chargePoints[cp.Id] = state
	}
	h.logger.Debug(fmt.Sprintf("loaded %d charge points, %d connectors from database", len(chargePoints), len(connectors)))
	return nil
}

// addChargePoint registers a charge point on its first-ever connection.
func (h *SystemHandler) addChargePoint(chargePointId string) *ChargePointState {
	cp := models.ChargePoint{
		Id:          chargePointId,
		IsEnabled:   true,
		IsConnected: true,
		Status:      string(core.ChargePointStatusAvailable),
		ErrorCode:   string(core.NoError),
		FirstSeen:   time.Now().UTC(),
	}
	if h.database != nil {
		if err := h.database.AddChargePoint(&cp); err != nil {
			h.logger.Error("failed to add charge point to database", err)
		}
	}
	state := &ChargePointState{
		connectors: make(map[int]*models.Connector),
		model:      cp,
	}
	h.chargePoints[chargePointId] = state
	return state
}

func (h *SystemHandler) getChargePoint(chargePointId string) *ChargePointState {
	h.mux.Lock()
	defer h.mux.Unlock()
	state, ok := h.chargePoints[chargePointId]
	if !ok {
		state = h.addChargePoint(chargePointId)
	}
	return state
}

func (h *SystemHandler) getConnector(cps *ChargePointState, id int) *models.Connector {
	h.mux.Lock()
	defer h.mux.Unlock()
	connector, ok := cps.connectors[id]
	if !ok {
		connector = models.NewConnector(id, cps.model.Id)
		cps.connectors[id] = connector
		if h.database != nil {
			if err := h.database.AddConnector(connector); err != nil {
				h.logger.Error("failed to add connector to database", err)
			}
		}
	}
	return connector
}

func (h *SystemHandler) notify(send func(internal.EventHandler)) {
	for _, eventHandler := range h.eventHandlers {
		send(eventHandler)
	}
}

func (h *SystemHandler) OnBootNotification(chargePointId string, request *core.BootNotificationRequest) (*core.BootNotificationResponse, error) {
	state := h.getChargePoint(chargePointId)
	state.model.Vendor = request.ChargePointVendor
	state.model.Model = request.ChargePointModel
	state.model.SerialNumber = request.ChargePointSerialNumber
	state.model.FirmwareVersion = request.FirmwareVersion
	state.model.IccId = request.Iccid
	state.model.Imsi = request.Imsi
	state.model.HeartbeatInterval = h.heartbeatInterval
	// Boot arrives right after connect; the durable record may predate
	// the registry's connection update when the charge point is new.
	state.model.IsConnected = true
	if h.database != nil {
		if err := h.database.UpdateChargePoint(&state.model); err != nil {
			h.logger.Error("update charge point", err)
		}
	}

	h.notify(func(eh internal.EventHandler) {
		eh.OnBootNotification(&internal.EventMessage{
			Type:          "BootNotification",
			ChargePointId: chargePointId,
			Time:          time.Now(),
			Status:        string(core.RegistrationStatusAccepted),
			Info:          fmt.Sprintf("%s %s fw %s", request.ChargePointVendor, request.ChargePointModel, request.FirmwareVersion),
			Payload:       request,
		})
	})

	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, string(core.RegistrationStatusAccepted))
	return core.NewBootNotificationResponse(types.NewDateTime(time.Now()), h.heartbeatInterval, core.RegistrationStatusAccepted), nil
}

func (h *SystemHandler) OnHeartbeat(chargePointId string, request *core.HeartbeatRequest) (*core.HeartbeatResponse, error) {
	if h.registry != nil {
		h.registry.Heartbeat(chargePointId)
	}
	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, "")
	return core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil
}

func (h *SystemHandler) OnAuthorize(chargePointId string, request *core.AuthorizeRequest) (*core.AuthorizeResponse, error) {
	info, err := h.authEngine.Authorize(chargePointId, request.IdTag)
	if err != nil {
		h.logger.Error("authorize", err)
		info = types.NewIdTagInfo(types.AuthorizationStatusInvalid)
	}

	h.notify(func(eh internal.EventHandler) {
		eh.OnAuthorize(&internal.EventMessage{
			Type:          "Authorize",
			ChargePointId: chargePointId,
			Time:          time.Now(),
			IdTag:         request.IdTag,
			Status:        string(info.Status),
			Payload:       request,
		})
	})
	return core.NewAuthorizationResponse(info), nil
}

// OnStartTransaction persists the new transaction before acknowledging;
// the charger will reference the returned id in its later stop event.
// Authorization runs alongside but never blocks transaction creation.
func (h *SystemHandler) OnStartTransaction(chargePointId string, request *core.StartTransactionRequest) (*core.StartTransactionResponse, error) {
	state := h.getChargePoint(chargePointId)
	connector := h.getConnector(state, request.ConnectorId)
	connector.Lock()
	defer connector.Unlock()
	if connector.CurrentTransactionId >= 0 {
		h.closeStaleTransaction(chargePointId, connector, request)
	}

	info := h.authorizeForStart(chargePointId, request.IdTag)

	username := ""
	if h.database != nil {
		if tag, err := h.database.GetUserTag(request.IdTag); err == nil && tag != nil {
			username = tag.Username
		}
	}

	transaction, err := h.ledger.Start(ledger.StartData{
		ChargePointId: chargePointId,
		ConnectorId:   request.ConnectorId,
		IdTag:         request.IdTag,
		MeterStart:    request.MeterStart,
		ReservationId: request.ReservationId,
		Timestamp:     request.Timestamp.Time,
		IdTagStatus:   string(info.Status),
		IdTagParent:   info.ParentIdTag,
		Username:      username,
	})
	if err != nil {
		h.logger.Error("start transaction", err)
		return core.NewStartTransactionResponse(types.NewIdTagInfo(types.AuthorizationStatusInvalid), 0), nil
	}

	connector.CurrentTransactionId = transaction.Id
	if h.database != nil {
		if err = h.database.UpdateConnector(connector); err != nil {
			h.logger.Error("update connector", err)
		}
	}
	observeTransactions(1)
	if h.trigger != nil {
		h.trigger.Register <- connector
	}

	h.notify(func(eh internal.EventHandler) {
		eh.OnTransactionStart(&internal.EventMessage{
			Type:          "TransactionStart",
			ChargePointId: chargePointId,
			ConnectorId:   transaction.ConnectorId,
			Time:          transaction.TimeStart,
			Username:      username,
			IdTag:         transaction.IdTag,
			Status:        connector.Status,
			TransactionId: transaction.Id,
			Payload:       request,
		})
	})

	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("started transaction #%v for connector %v", transaction.Id, transaction.ConnectorId))
	return core.NewStartTransactionResponse(info, transaction.Id), nil
}

// closeStaleTransaction finishes a transaction left open on a connector
// that reports a new start. A connector carries at most one active
// transaction; the stale one is closed at the new start's meter mark.
func (h *SystemHandler) closeStaleTransaction(chargePointId string, connector *models.Connector, request *core.StartTransactionRequest) {
	staleId := connector.CurrentTransactionId
	h.logger.Warn(fmt.Sprintf("connector %s@%d is busy with transaction %d, closing it", chargePointId, connector.Id, staleId))
	if _, err := h.ledger.Stop(staleId, ledger.StopData{
		MeterStop: request.MeterStart,
		Reason:    string(core.ReasonOther),
		Timestamp: request.Timestamp.Time,
	}); err != nil {
		h.logger.Error("closing stale transaction", err)
	} else {
		observeTransactions(-1)
	}
	connector.CurrentTransactionId = -1
	if h.trigger != nil {
		h.trigger.Unregister <- staleId
	}
}

// authorizeForStart applies the fail-open policy: an authorization
// infrastructure failure must not strand a driver at the cable, so the
// default posture accepts the tag and leaves the dispute to billing.
func (h *SystemHandler) authorizeForStart(chargePointId, idTag string) *types.IdTagInfo {
	info, err := h.authEngine.Authorize(chargePointId, idTag)
	if err == nil {
		return info
	}
	h.logger.Error("authorize on start", err)
	if h.failOpen {
		return types.NewIdTagInfo(types.AuthorizationStatusAccepted)
	}
	return types.NewIdTagInfo(types.AuthorizationStatusInvalid)
}

// stopAck acknowledges a stop event. The ack always carries an accepted
// tag status; the transaction is over and rejecting the tag now would
// change nothing on the charger side.
func stopAck() *core.StopTransactionResponse {
	response := core.NewStopTransactionResponse()
	response.IdTagInfo = types.NewIdTagInfo(types.AuthorizationStatusAccepted)
	return response
}

func (h *SystemHandler) OnStopTransaction(chargePointId string, request *core.StopTransactionRequest) (*core.StopTransactionResponse, error) {
	state := h.getChargePoint(chargePointId)

	existing, err := h.ledger.Find(request.TransactionId)
	if err != nil {
		if utility.IsCode(err, utility.CodeNotFound) {
			h.logger.Warn(fmt.Sprintf("transaction #%v not found", request.TransactionId))
		} else {
			h.logger.Error("stop transaction", err)
		}
		return stopAck(), nil
	}
	if existing.IsFinished() {
		// A redelivered stop event; its samples are already stored.
		h.logger.Warn(fmt.Sprintf("transaction #%v already finished", request.TransactionId))
		return stopAck(), nil
	}

	stopData := ledger.StopData{
		MeterStop: request.MeterStop,
		Reason:    string(request.Reason),
		IdTag:     request.IdTag,
		Timestamp: request.Timestamp.Time,
	}
	meterStartOverride, startTimeOverride := h.persistTransactionData(chargePointId, existing.ConnectorId, request, &stopData)

	transaction, err := h.ledger.Stop(request.TransactionId, stopData)
	if err != nil {
		h.logger.Error("stop transaction", err)
		return stopAck(), nil
	}

	if meterStartOverride != nil {
		transaction.MeterStart = *meterStartOverride
		transaction.TimeStart = *startTimeOverride
		if h.database != nil {
			if err = h.database.UpdateTransaction(transaction); err != nil {
				h.logger.Error("update transaction", err)
			}
		}
	}

	connector := h.getConnector(state, transaction.ConnectorId)
	connector.Lock()
	if connector.CurrentTransactionId == transaction.Id {
		connector.CurrentTransactionId = -1
		if h.database != nil {
			if err = h.database.UpdateConnector(connector); err != nil {
				h.logger.Error("update connector", err)
			}
		}
		observeTransactions(-1)
	}
	connector.Unlock()
	if h.trigger != nil {
		h.trigger.Unregister <- transaction.Id
	}

	// Billing is best effort; the charger always gets its acknowledgement.
	info := ""
	if h.billing != nil {
		consumption, err := h.billing.OnTransactionFinished(transaction)
		if err != nil {
			h.logger.Error("billing", err)
		} else if consumption != nil {
			observeEnergy(consumption.EnergyConsumed)
			info = fmt.Sprintf("consumed %.3f kWh, cost %.2f %s", consumption.EnergyConsumed, consumption.TotalCost, consumption.Currency)
		}
	}

	h.notify(func(eh internal.EventHandler) {
		eh.OnTransactionStop(&internal.EventMessage{
			Type:          "TransactionStop",
			ChargePointId: chargePointId,
			ConnectorId:   transaction.ConnectorId,
			Time:          transaction.TimeStart,
			Username:      transaction.Username,
			IdTag:         transaction.IdTag,
			Status:        transaction.Status,
			TransactionId: transaction.Id,
			Info:          info,
			Payload:       request,
		})
	})

	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("stopped transaction %v %v", request.TransactionId, request.Reason))
	return stopAck(), nil
}

// persistTransactionData stores the stop event's embedded meter values
// and reconciles Transaction.Begin/End readings into the final meter and
// time bounds.
func (h *SystemHandler) persistTransactionData(chargePointId string, connectorId int, request *core.StopTransactionRequest, stopData *ledger.StopData) (*int, *time.Time) {
	var meterStart *int
	var startTime *time.Time
	transactionId := request.TransactionId
	for _, data := range request.TransactionData {
		for _, value := range data.SampledValue {
			switch value.Context {
			case types.ReadingContextTransactionBegin:
				begin := utility.ToInt(value.Value)
				beginTime := data.Timestamp.Time
				meterStart = &begin
				startTime = &beginTime
			case types.ReadingContextTransactionEnd:
				stopData.MeterStop = utility.ToInt(value.Value)
				stopData.Timestamp = data.Timestamp.Time
			}
			if h.database != nil {
				sample := flattenSample(chargePointId, connectorId, &transactionId, data.Timestamp.Time, value)
				if err := h.database.AddMeterSample(sample); err != nil {
					h.logger.Error("add meter sample", err)
				}
			}
		}
	}
	return meterStart, startTime
}

func (h *SystemHandler) OnMeterValues(chargePointId string, request *core.MeterValuesRequest) (*core.MeterValuesResponse, error) {
	var transactionId *int
	if request.TransactionId != nil && *request.TransactionId > 0 {
		transactionId = request.TransactionId
	}
	// Each sample entry stands alone; one malformed entry must not lose
	// the rest of the batch.
	for _, meterValue := range request.MeterValue {
		for _, value := range meterValue.SampledValue {
			if h.database == nil {
				continue
			}
			sample := flattenSample(chargePointId, request.ConnectorId, transactionId, meterValue.Timestamp.Time, value)
			if err := h.database.AddMeterSample(sample); err != nil {
				h.logger.Error("add meter sample", err)
			}
		}
	}
	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("received meter values for connector #%v", request.ConnectorId))
	return core.NewMeterValuesResponse(), nil
}

func flattenSample(chargePointId string, connectorId int, transactionId *int, timestamp time.Time, value types.SampledValue) *models.MeterSample {
	return &models.MeterSample{
		ChargePointId: chargePointId,
		ConnectorId:   connectorId,
		TransactionId: transactionId,
		Time:          timestamp,
		Value:         value.Value,
		Measurand:     string(value.Measurand),
		Unit:          string(value.Unit),
		Context:       string(value.Context),
		Format:        string(value.Format),
		Phase:         string(value.Phase),
		Location:      string(value.Location),
	}
}

func (h *SystemHandler) OnStatusNotification(chargePointId string, request *core.StatusNotificationRequest) (*core.StatusNotificationResponse, error) {
	state := h.getChargePoint(chargePointId)
	currentTransactionId := -1
	now := time.Now().UTC()
	state.errorCode = request.ErrorCode
	if request.ErrorCode != core.NoError {
		observeError(chargePointId, string(request.ErrorCode))
	}

	if request.ConnectorId > 0 {
		connector := h.getConnector(state, request.ConnectorId)
		connector.Lock()
		connector.Status = string(request.Status)
		connector.Info = request.Info
		connector.VendorId = request.VendorId
		connector.ErrorCode = string(request.ErrorCode)
		connector.StatusTime = now
		if request.Status == core.ChargePointStatusAvailable {
			connector.CurrentTransactionId = -1
		}
		if h.database != nil {
			if err := h.database.UpdateConnector(connector); err != nil {
				h.logger.Error("update status", err)
			}
		}
		currentTransactionId = connector.CurrentTransactionId
		connector.Unlock()
		h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("updated connector #%v status to %v", request.ConnectorId, request.Status))
	} else {
		state.status = request.Status
		state.model.Status = string(request.Status)
		state.model.ErrorCode = string(request.ErrorCode)
		if h.database != nil {
			if err := h.database.UpdateChargePoint(&state.model); err != nil {
				h.logger.Error("update status", err)
			}
		}
		h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("updated main controller status to %v", request.Status))
	}

	if h.database != nil {
		history := &models.StatusHistory{
			ChargePointId: chargePointId,
			ConnectorId:   request.ConnectorId,
			Status:        string(request.Status),
			ErrorCode:     string(request.ErrorCode),
			Info:          request.Info,
			Time:          now,
		}
		if err := h.database.AddStatusHistory(history); err != nil {
			h.logger.Error("add status history", err)
		}
	}

	h.notify(func(eh internal.EventHandler) {
		eh.OnStatusNotification(&internal.EventMessage{
			Type:          "StatusNotification",
			ChargePointId: chargePointId,
			ConnectorId:   request.ConnectorId,
			Time:          now,
			Status:        string(request.Status),
			Info:          request.Info,
			TransactionId: currentTransactionId,
			Payload:       request,
		})
	})

	return core.NewStatusNotificationResponse(), nil
}

func (h *SystemHandler) OnDataTransfer(chargePointId string, request *core.DataTransferRequest) (*core.DataTransferResponse, error) {
	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("received data from vendor %v", request.VendorId))
	return core.NewDataTransferResponse(core.DataTransferStatusAccepted), nil
}

func (h *SystemHandler) OnDiagnosticsStatusNotification(chargePointId string, request *firmware.DiagnosticsStatusNotificationRequest) (*firmware.DiagnosticsStatusNotificationResponse, error) {
	state := h.getChargePoint(chargePointId)
	state.diagnosticsStatus = request.Status
	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("updated diagnostic status to %v", request.Status))
	return firmware.NewDiagnosticsStatusNotificationResponse(), nil
}

func (h *SystemHandler) OnFirmwareStatusNotification(chargePointId string, request *firmware.StatusNotificationRequest) (*firmware.StatusNotificationResponse, error) {
	state := h.getChargePoint(chargePointId)
	state.firmwareStatus = request.Status
	h.logger.FeatureEvent(request.GetFeatureName(), chargePointId, fmt.Sprintf("updated firmware status to %v", request.Status))
	return firmware.NewStatusNotificationResponse(), nil
}
