package server

import (
	"fmt"
	"log"
	"sync"
	"time"

	"evcs/auth"
	"evcs/billing"
	"evcs/internal"
	"evcs/internal/config"
	"evcs/ledger"
	"evcs/metrics"
	"evcs/notifier"
	"evcs/ocpp"
	"evcs/ocpp/core"
	"evcs/ocpp/firmware"
	"evcs/tariff"
	"evcs/telegram"
	"evcs/types"
	"evcs/utility"
)

type CentralSystem struct {
	server          *Server
	api             *Api
	registry        *Registry
	logger          internal.LogHandler
	handler         *SystemHandler
	location        *time.Location
	pendingRequests map[string]chan string
	pendingMutex    sync.Mutex
}

func (cs *CentralSystem) addPending(uniqueId string, response chan string) {
	cs.pendingMutex.Lock()
	defer cs.pendingMutex.Unlock()
	cs.pendingRequests[uniqueId] = response
}

func (cs *CentralSystem) removePending(uniqueId string) {
	cs.pendingMutex.Lock()
	defer cs.pendingMutex.Unlock()
	delete(cs.pendingRequests, uniqueId)
}

func (cs *CentralSystem) resolvePending(uniqueId, payload string) bool {
	cs.pendingMutex.Lock()
	defer cs.pendingMutex.Unlock()
	response, ok := cs.pendingRequests[uniqueId]
	if !ok {
		return false
	}
	select {
	case response <- payload:
	default:
	}
	return true
}

func (cs *CentralSystem) handleIncomingMessage(ws *WebSocket, data []byte) error {
	chargePointId := ws.ID()
	message, err := utility.ParseJson(data)
	if err != nil {
		return err
	}
	callType, err := MessageType(message)
	if err != nil {
		return err
	}
	if callType == CallTypeError {
		cs.logger.Warn(fmt.Sprintf("error message received from charge point %s: %s", chargePointId, string(data)))
		return nil
	}
	if callType == CallTypeResult {
		result, err := ParseResultUnchecked(message)
		if err != nil {
			cs.logger.Warn(fmt.Sprintf("invalid message received from charge point %s: %s", chargePointId, string(data)))
			return nil
		}
		if !cs.resolvePending(result.UniqueId, result.Payload) {
			// The waiting command has already timed out or never existed.
			cs.logger.Warn(fmt.Sprintf("late or unexpected result %s from charge point %s", result.UniqueId, chargePointId))
		}
		return nil
	}
	callRequest, err := ParseRequest(message)
	if err != nil {
		if uniqueId, ok := message[1].(string); ok && utility.IsCode(err, utility.CodeValidation) {
			callError := CreateCallError(uniqueId, "FormationViolation", err.Error())
			if data, marshalErr := callError.MarshalJSON(); marshalErr == nil {
				_ = cs.server.SendData(ws, data)
			}
		}
		return err
	}
	ws.SetUniqueId(callRequest.UniqueId)

	request := callRequest.Payload
	action := request.GetFeatureName()
	var confirmation ocpp.Response
	switch action {
	case core.BootNotificationFeatureName:
		confirmation, err = cs.handler.OnBootNotification(chargePointId, request.(*core.BootNotificationRequest))
	case core.AuthorizeFeatureName:
		confirmation, err = cs.handler.OnAuthorize(chargePointId, request.(*core.AuthorizeRequest))
	case core.HeartbeatFeatureName:
		confirmation, err = cs.handler.OnHeartbeat(chargePointId, request.(*core.HeartbeatRequest))
	case core.StartTransactionFeatureName:
		confirmation, err = cs.handler.OnStartTransaction(chargePointId, request.(*core.StartTransactionRequest))
	case core.StopTransactionFeatureName:
		confirmation, err = cs.handler.OnStopTransaction(chargePointId, request.(*core.StopTransactionRequest))
	case core.MeterValuesFeatureName:
		confirmation, err = cs.handler.OnMeterValues(chargePointId, request.(*core.MeterValuesRequest))
	case core.StatusNotificationFeatureName:
		confirmation, err = cs.handler.OnStatusNotification(chargePointId, request.(*core.StatusNotificationRequest))
	case core.DataTransferFeatureName:
		confirmation, err = cs.handler.OnDataTransfer(chargePointId, request.(*core.DataTransferRequest))
	case firmware.DiagnosticsStatusNotificationFeatureName:
		confirmation, err = cs.handler.OnDiagnosticsStatusNotification(chargePointId, request.(*firmware.DiagnosticsStatusNotificationRequest))
	case firmware.StatusNotificationFeatureName:
		confirmation, err = cs.handler.OnFirmwareStatusNotification(chargePointId, request.(*firmware.StatusNotificationRequest))
	default:
		err = fmt.Errorf("feature not supported: %s", action)
	}
	if err != nil {
		return err
	}

	if ws.IsClosed() {
		cs.logger.FeatureEvent(action, chargePointId, "websocket closed, response not sent")
		return nil
	}
	return cs.server.SendResponse(ws, confirmation)
}

func (cs *CentralSystem) Start() {
	go func() {
		if err := cs.server.Start(); err != nil {
			cs.logger.Error("websocket server failed", err)
		}
	}()

	go func() {
		if err := cs.api.Start(); err != nil {
			cs.logger.Error("api server failed", err)
		}
	}()

	select {}
}

func NewCentralSystem(conf *config.Config) (*CentralSystem, error) {
	cs := &CentralSystem{}
	cs.pendingRequests = make(map[string]chan string)

	log.Println("set time zone to " + conf.TimeZone)
	location, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("time zone initialization failed: %s", err)
	}
	cs.location = location

	var database internal.Database
	if conf.Mongo.Enabled {
		mongo, err := internal.NewMongoClient(conf)
		if err != nil {
			return nil, fmt.Errorf("mongodb setup failed: %s", err)
		}
		if mongo != nil {
			database = mongo
			log.Println("mongodb is configured and enabled")
		}
	} else {
		log.Println("database is disabled")
	}

	var messageService internal.MessageService
	if conf.Nats.Enabled {
		messageService, err = notifier.NewNats(conf)
		if err != nil {
			return nil, fmt.Errorf("nats setup failed: %s", err)
		}
		log.Println("nats publisher is configured and enabled")
	} else {
		log.Println("event publishing is disabled")
	}

	logService := internal.NewLogger(location)
	if conf.IsDebug != nil {
		logService.SetDebugMode(*conf.IsDebug)
	}
	logService.SetDatabase(database)
	logService.SetMessageService(messageService)
	cs.logger = logService

	registry := NewRegistry()
	registry.SetDatabase(database)
	registry.SetLogger(logService)
	cs.registry = registry

	authEngine := auth.NewEngine(database, conf.BlockedTags)
	authEngine.SetLogger(logService)

	transactionLedger := ledger.NewLedger(database)
	transactionLedger.SetLogger(logService)

	tariffResolver := tariff.NewResolver(database)
	tariffResolver.SetLogger(logService)

	calculator := billing.NewCalculator(database, tariffResolver, location)
	calculator.SetLogger(logService)

	systemHandler := NewSystemHandler(location)
	systemHandler.SetDatabase(database)
	systemHandler.SetLogger(logService)
	systemHandler.SetAuthEngine(authEngine)
	systemHandler.SetLedger(transactionLedger)
	systemHandler.SetBillingService(calculator)
	systemHandler.SetRegistry(registry)
	debug := conf.IsDebug != nil && *conf.IsDebug
	systemHandler.SetParameters(debug, conf.HeartbeatInterval, conf.FailOpen())
	cs.handler = systemHandler

	if messageService != nil {
		events := notifier.NewEvents(messageService)
		events.SetLogger(logService)
		systemHandler.SetEventHandler(events)
	}

	if conf.Telegram.Enabled {
		telegramBot, err := telegram.NewBot(conf.Telegram.ApiKey)
		if err != nil {
			return nil, fmt.Errorf("telegram bot setup failed: %s", err)
		}
		telegramBot.SetDatabase(database)
		telegramBot.Start()
		systemHandler.SetEventHandler(telegramBot)
		log.Println("telegram bot is configured and enabled")
	}

	wsServer := NewServer(conf, logService)
	wsServer.AddSupportedSubProtocol(types.SubProtocol16)
	wsServer.SetMessageHandler(cs.handleIncomingMessage)
	wsServer.SetRegistry(registry)
	cs.server = wsServer

	trigger := NewTrigger(cs, logService)
	trigger.Start()
	systemHandler.SetTrigger(trigger)

	if err = systemHandler.OnStart(); err != nil {
		return nil, err
	}

	apiServer := NewServerApi(conf, logService)
	apiServer.SetCentralSystem(cs)
	apiServer.SetDatabase(database)
	cs.api = apiServer

	if conf.Metrics.Enabled {
		go func() {
			if err := metrics.Listen(conf); err != nil {
				logService.Error("metrics server failed", err)
			}
		}()
	}

	return cs, nil
}
