package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"evcs/internal"
	"evcs/internal/config"
	"evcs/ocpp/core"
	"evcs/ocpp/firmware"
	"evcs/ocpp/localauth"
	"evcs/ocpp/remotetrigger"
	"evcs/ocpp/reservation"
	"evcs/types"
	"evcs/utility"
)

const (
	apiSessions    = "/api/sessions"
	apiCommand     = "/api/cp/:id/:feature"
	apiLog         = "/api/log"
	apiConsumption = "/api/consumption"
)

type Api struct {
	conf       *config.Config
	httpServer *http.Server
	cs         *CentralSystem
	database   internal.Database
	logger     internal.LogHandler
}

// commandBody carries the union of per-command parameters; each command
// wrapper picks the fields it needs and validates them itself.
type commandBody struct {
	ConnectorId   int      `json:"connector_id,omitempty"`
	TransactionId int      `json:"transaction_id,omitempty"`
	IdTag         string   `json:"id_tag,omitempty"`
	Key           string   `json:"key,omitempty"`
	Value         string   `json:"value,omitempty"`
	Keys          []string `json:"keys,omitempty"`
	Type          string   `json:"type,omitempty"`
	Location      string   `json:"location,omitempty"`
	RetrieveDate  string   `json:"retrieve_date,omitempty"`
	ListVersion   int      `json:"list_version,omitempty"`
	UpdateType    string   `json:"update_type,omitempty"`
	ExpiryDate    string   `json:"expiry_date,omitempty"`
	ReservationId int      `json:"reservation_id,omitempty"`
	Message       string   `json:"message,omitempty"`
}

func NewServerApi(conf *config.Config, logger internal.LogHandler) *Api {
	api := Api{
		conf:   conf,
		logger: logger,
	}
	router := httprouter.New()
	router.GET(apiSessions, api.handleSessions)
	router.GET(apiLog, api.handleLog)
	router.GET(apiConsumption, api.handleConsumption)
	router.POST(apiCommand, api.handleCommand)
	api.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", conf.Api.BindIP, conf.Api.Port),
		Handler: router,
	}
	return &api
}

func (s *Api) SetCentralSystem(cs *CentralSystem) {
	s.cs = cs
}

func (s *Api) SetDatabase(database internal.Database) {
	s.database = database
}

func (s *Api) Start() error {
	s.logger.Debug(fmt.Sprintf("starting api server on %s", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Api) handleSessions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJson(w, s.cs.registry.ListAll())
}

func (s *Api) handleLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.database == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	messages, err := s.database.ReadLog()
	if err != nil {
		s.logger.Error("api: reading log", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.writeJson(w, messages)
}

func (s *Api) handleConsumption(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.database == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	from, err := parseTimeParam(r, "from", time.Time{})
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	to, err := parseTimeParam(r, "to", time.Now().UTC())
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	totals, err := s.database.GetConsumptionTotals(from, to)
	if err != nil {
		s.logger.Error("api: reading consumption totals", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.writeJson(w, totals)
}

func parseTimeParam(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, nil
	}
	return time.Parse(time.RFC3339, value)
}

func (s *Api) handleCommand(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	chargePointId := params.ByName("id")
	feature := params.ByName("feature")

	var body commandBody
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err.Error() != "EOF" {
			s.logger.Warn(fmt.Sprintf("api: error parsing command body from %s: %s", r.RemoteAddr, err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	payload, err := s.dispatch(chargePointId, feature, body)
	if err != nil {
		s.writeError(w, chargePointId, feature, err)
		return
	}
	if payload == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	if _, err = w.Write([]byte(payload)); err != nil {
		s.logger.Error("api: writing command response", err)
	}
}

func (s *Api) dispatch(chargePointId, feature string, body commandBody) (string, error) {
	cs := s.cs
	switch feature {
	case core.ChangeAvailabilityFeatureName:
		return cs.ChangeAvailability(chargePointId, body.ConnectorId, types.AvailabilityType(body.Type))
	case core.ChangeConfigurationFeatureName:
		return cs.ChangeConfiguration(chargePointId, body.Key, body.Value)
	case core.ClearCacheFeatureName:
		return cs.ClearCache(chargePointId)
	case core.GetConfigurationFeatureName:
		return cs.GetConfiguration(chargePointId, body.Keys)
	case core.RemoteStartTransactionFeatureName:
		return cs.RemoteStartTransaction(chargePointId, body.IdTag, body.ConnectorId)
	case core.RemoteStopTransactionFeatureName:
		return cs.RemoteStopTransaction(chargePointId, body.TransactionId)
	case core.ResetFeatureName:
		return cs.Reset(chargePointId, core.ResetType(body.Type))
	case core.UnlockConnectorFeatureName:
		return cs.UnlockConnector(chargePointId, body.ConnectorId)
	case firmware.GetDiagnosticsFeatureName:
		return cs.GetDiagnostics(chargePointId, body.Location)
	case firmware.UpdateFirmwareFeatureName:
		retrieveDate, err := parseDate(body.RetrieveDate)
		if err != nil {
			return "", utility.ValidationErr(fmt.Sprintf("invalid retrieve date: %s", body.RetrieveDate))
		}
		return cs.UpdateFirmware(chargePointId, body.Location, retrieveDate)
	case localauth.SendLocalListFeatureName:
		return cs.SendLocalList(chargePointId, body.ListVersion, localauth.UpdateType(body.UpdateType))
	case localauth.GetLocalListVersionFeatureName:
		return cs.GetLocalListVersion(chargePointId)
	case reservation.ReserveNowFeatureName:
		expiry, err := parseDate(body.ExpiryDate)
		if err != nil || expiry == nil {
			return "", utility.ValidationErr(fmt.Sprintf("invalid expiry date: %s", body.ExpiryDate))
		}
		return cs.ReserveNow(chargePointId, body.ConnectorId, expiry, body.IdTag, body.ReservationId)
	case remotetrigger.TriggerMessageFeatureName:
		return cs.TriggerMessage(chargePointId, body.Message, body.ConnectorId)
	}
	return "", utility.ValidationErr(fmt.Sprintf("feature not supported: %s", feature))
}

func parseDate(value string) (*types.DateTime, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return types.NewDateTime(parsed), nil
}

func (s *Api) writeError(w http.ResponseWriter, chargePointId, feature string, err error) {
	status := http.StatusInternalServerError
	switch utility.CodeOf(err) {
	case utility.CodeNotConnected:
		status = http.StatusNotFound
	case utility.CodeTimeout:
		status = http.StatusGatewayTimeout
	case utility.CodeValidation:
		status = http.StatusBadRequest
	}
	s.logger.Warn(fmt.Sprintf("api: command %s to %s failed: %s", feature, chargePointId, err))
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Api) writeJson(w http.ResponseWriter, data interface{}) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("api: encoding response", err)
	}
}
