package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcs/auth"
	"evcs/internal"
	"evcs/ledger"
	"evcs/models"
	"evcs/ocpp/core"
	"evcs/types"
	"evcs/utility"
)

type nopLogger struct{}

func (nopLogger) FeatureEvent(string, string, string) {}
func (nopLogger) RawDataEvent(string, string)         {}
func (nopLogger) Debug(string)                        {}
func (nopLogger) Warn(string)                         {}
func (nopLogger) Error(string, error)                 {}

type handlerTagStore struct {
	tags map[string]*models.UserTag
	err  error
}

func (s *handlerTagStore) GetUserTag(id string) (*models.UserTag, error) {
	if s.err != nil {
		return nil, s.err
	}
	tag, ok := s.tags[id]
	if !ok {
		return nil, utility.NotFoundErr("tag not found")
	}
	return tag, nil
}

func (s *handlerTagStore) UpdateUserTag(*models.UserTag) error { return nil }

func (s *handlerTagStore) AddAuthorizationRecord(*models.AuthorizationRecord) error { return nil }

type handlerLedgerStore struct {
	transactions map[int]*models.Transaction
	lastId       int
}

func newHandlerLedgerStore() *handlerLedgerStore {
	return &handlerLedgerStore{transactions: make(map[int]*models.Transaction)}
}

func (s *handlerLedgerStore) GetTransaction(id int) (*models.Transaction, error) {
	transaction, ok := s.transactions[id]
	if !ok {
		return nil, utility.NotFoundErr("transaction not found")
	}
	return transaction, nil
}

func (s *handlerLedgerStore) GetLastTransaction() (*models.Transaction, error) {
	if s.lastId == 0 {
		return nil, utility.NotFoundErr("no transactions")
	}
	return s.transactions[s.lastId], nil
}

func (s *handlerLedgerStore) GetActiveTransaction(string, int) (*models.Transaction, error) {
	return nil, utility.NotFoundErr("no active transaction")
}

func (s *handlerLedgerStore) AddTransaction(transaction *models.Transaction) error {
	s.transactions[transaction.Id] = transaction
	if transaction.Id > s.lastId {
		s.lastId = transaction.Id
	}
	return nil
}

func (s *handlerLedgerStore) UpdateTransaction(transaction *models.Transaction) error {
	s.transactions[transaction.Id] = transaction
	return nil
}

func newTestHandler(tagStore *handlerTagStore, ledgerStore *handlerLedgerStore) *SystemHandler {
	handler := NewSystemHandler(time.UTC)
	handler.SetLogger(nopLogger{})
	engine := auth.NewEngine(tagStore, nil)
	engine.SetLogger(nopLogger{})
	handler.SetAuthEngine(engine)
	handlerLedger := ledger.NewLedger(ledgerStore)
	handlerLedger.SetLogger(nopLogger{})
	handler.SetLedger(handlerLedger)
	return handler
}

func acceptedTagStore() *handlerTagStore {
	return &handlerTagStore{tags: map[string]*models.UserTag{
		"TAG1": {IdTag: "TAG1", IsEnabled: true, Status: string(types.AuthorizationStatusAccepted)},
	}}
}

func startRequest() *core.StartTransactionRequest {
	return &core.StartTransactionRequest{
		ConnectorId: 1,
		IdTag:       "TAG1",
		MeterStart:  1000,
		Timestamp:   types.NewDateTime(time.Now().UTC()),
	}
}

func TestOnBootNotificationAccepted(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())
	handler.SetParameters(false, 300, true)

	response, err := handler.OnBootNotification("cp1", &core.BootNotificationRequest{
		ChargePointVendor: "VendorX",
		ChargePointModel:  "ModelY",
	})
	require.NoError(t, err)
	assert.Equal(t, core.RegistrationStatusAccepted, response.Status)
	assert.Equal(t, 300, response.Interval)
	require.NotNil(t, response.CurrentTime)
}

func TestOnAuthorizeKnownTag(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())

	response, err := handler.OnAuthorize("cp1", &core.AuthorizeRequest{IdTag: "TAG1"})
	require.NoError(t, err)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.IdTagInfo.Status)
}

func TestOnAuthorizeInfrastructureFailureInvalid(t *testing.T) {
	handler := newTestHandler(&handlerTagStore{err: utility.Err("down")}, newHandlerLedgerStore())

	response, err := handler.OnAuthorize("cp1", &core.AuthorizeRequest{IdTag: "TAG1"})
	require.NoError(t, err)
	assert.Equal(t, types.AuthorizationStatusInvalid, response.IdTagInfo.Status)
}

func TestOnStartTransaction(t *testing.T) {
	ledgerStore := newHandlerLedgerStore()
	handler := newTestHandler(acceptedTagStore(), ledgerStore)

	response, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.IdTagInfo.Status)
	assert.Greater(t, response.TransactionId, 0)

	transaction, err := ledgerStore.GetTransaction(response.TransactionId)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusActive, transaction.Status)
	assert.Equal(t, "cp1", transaction.ChargePointId)
	assert.Equal(t, 1000, transaction.MeterStart)
}

func TestOnStartTransactionFailOpen(t *testing.T) {
	handler := newTestHandler(&handlerTagStore{err: utility.Err("down")}, newHandlerLedgerStore())
	handler.SetParameters(false, 0, true)

	response, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.IdTagInfo.Status)
	assert.Greater(t, response.TransactionId, 0)
}

func TestOnStartTransactionFailClosed(t *testing.T) {
	handler := newTestHandler(&handlerTagStore{err: utility.Err("down")}, newHandlerLedgerStore())
	handler.SetParameters(false, 0, false)

	response, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)
	assert.Equal(t, types.AuthorizationStatusInvalid, response.IdTagInfo.Status)
}

func TestOnStopTransaction(t *testing.T) {
	ledgerStore := newHandlerLedgerStore()
	handler := newTestHandler(acceptedTagStore(), ledgerStore)

	started, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)

	response, err := handler.OnStopTransaction("cp1", &core.StopTransactionRequest{
		TransactionId: started.TransactionId,
		MeterStop:     6000,
		Reason:        core.ReasonLocal,
		Timestamp:     types.NewDateTime(time.Now().UTC()),
	})
	require.NoError(t, err)
	require.NotNil(t, response.IdTagInfo)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.IdTagInfo.Status)

	transaction, err := ledgerStore.GetTransaction(started.TransactionId)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, transaction.Status)
	require.NotNil(t, transaction.MeterStop)
	assert.Equal(t, 6000, *transaction.MeterStop)

	state := handler.getChargePoint("cp1")
	connector := handler.getConnector(state, 1)
	assert.Equal(t, -1, connector.CurrentTransactionId)
}

func TestOnStopTransactionUnknownIdAcknowledged(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())

	response, err := handler.OnStopTransaction("cp1", &core.StopTransactionRequest{
		TransactionId: 999,
		MeterStop:     100,
		Timestamp:     types.NewDateTime(time.Now().UTC()),
	})
	require.NoError(t, err)
	require.NotNil(t, response.IdTagInfo)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.IdTagInfo.Status)
}

func TestOnStartTransactionBusyConnectorClosesStale(t *testing.T) {
	ledgerStore := newHandlerLedgerStore()
	handler := newTestHandler(acceptedTagStore(), ledgerStore)

	first, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)

	second, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first.TransactionId, second.TransactionId)

	stale, err := ledgerStore.GetTransaction(first.TransactionId)
	require.NoError(t, err)
	assert.True(t, stale.IsFinished())
	assert.Equal(t, models.TransactionStatusCompleted, stale.Status)

	active := 0
	for _, transaction := range ledgerStore.transactions {
		if transaction.Status == models.TransactionStatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)

	state := handler.getChargePoint("cp1")
	connector := handler.getConnector(state, 1)
	assert.Equal(t, second.TransactionId, connector.CurrentTransactionId)
}

type sampleCountingDatabase struct {
	internal.Database
	samples int
}

func (d *sampleCountingDatabase) AddChargePoint(*models.ChargePoint) error    { return nil }
func (d *sampleCountingDatabase) UpdateChargePoint(*models.ChargePoint) error { return nil }
func (d *sampleCountingDatabase) AddConnector(*models.Connector) error        { return nil }
func (d *sampleCountingDatabase) UpdateConnector(*models.Connector) error     { return nil }
func (d *sampleCountingDatabase) UpdateTransaction(*models.Transaction) error { return nil }

func (d *sampleCountingDatabase) GetUserTag(string) (*models.UserTag, error) {
	return nil, utility.NotFoundErr("tag not found")
}

func (d *sampleCountingDatabase) AddMeterSample(*models.MeterSample) error {
	d.samples++
	return nil
}

func TestOnStopTransactionRedeliveredSkipsSamples(t *testing.T) {
	ledgerStore := newHandlerLedgerStore()
	handler := newTestHandler(acceptedTagStore(), ledgerStore)
	database := &sampleCountingDatabase{}
	handler.SetDatabase(database)

	started, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)

	stop := &core.StopTransactionRequest{
		TransactionId: started.TransactionId,
		MeterStop:     6000,
		Reason:        core.ReasonLocal,
		Timestamp:     types.NewDateTime(time.Now().UTC()),
		TransactionData: []types.MeterValue{{
			Timestamp: types.NewDateTime(time.Now().UTC()),
			SampledValue: []types.SampledValue{{
				Value:   "6000",
				Context: types.ReadingContextTransactionEnd,
			}},
		}},
	}
	response, err := handler.OnStopTransaction("cp1", stop)
	require.NoError(t, err)
	require.NotNil(t, response.IdTagInfo)
	assert.Equal(t, 1, database.samples)

	response, err = handler.OnStopTransaction("cp1", stop)
	require.NoError(t, err)
	require.NotNil(t, response.IdTagInfo)
	assert.Equal(t, types.AuthorizationStatusAccepted, response.IdTagInfo.Status)
	assert.Equal(t, 1, database.samples)
}

func TestOnBootNotificationMarksConnected(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())

	_, err := handler.OnBootNotification("cp1", &core.BootNotificationRequest{
		ChargePointVendor: "VendorX",
		ChargePointModel:  "ModelY",
	})
	require.NoError(t, err)

	state := handler.getChargePoint("cp1")
	assert.True(t, state.model.IsConnected)
}

func TestOnStatusNotificationConnector(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())

	_, err := handler.OnStatusNotification("cp1", &core.StatusNotificationRequest{
		ConnectorId: 1,
		Status:      core.ChargePointStatusCharging,
		ErrorCode:   core.NoError,
	})
	require.NoError(t, err)

	state := handler.getChargePoint("cp1")
	connector := handler.getConnector(state, 1)
	assert.Equal(t, string(core.ChargePointStatusCharging), connector.Status)
}

func TestOnStatusNotificationAvailableClearsTransaction(t *testing.T) {
	ledgerStore := newHandlerLedgerStore()
	handler := newTestHandler(acceptedTagStore(), ledgerStore)

	started, err := handler.OnStartTransaction("cp1", startRequest())
	require.NoError(t, err)
	state := handler.getChargePoint("cp1")
	connector := handler.getConnector(state, 1)
	assert.Equal(t, started.TransactionId, connector.CurrentTransactionId)

	_, err = handler.OnStatusNotification("cp1", &core.StatusNotificationRequest{
		ConnectorId: 1,
		Status:      core.ChargePointStatusAvailable,
		ErrorCode:   core.NoError,
	})
	require.NoError(t, err)
	assert.Equal(t, -1, connector.CurrentTransactionId)
}

func TestOnStatusNotificationChargePoint(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())

	_, err := handler.OnStatusNotification("cp1", &core.StatusNotificationRequest{
		ConnectorId: 0,
		Status:      core.ChargePointStatusUnavailable,
		ErrorCode:   core.NoError,
	})
	require.NoError(t, err)

	state := handler.getChargePoint("cp1")
	assert.Equal(t, core.ChargePointStatusUnavailable, state.status)
}

func TestOnDataTransferAccepted(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())

	response, err := handler.OnDataTransfer("cp1", &core.DataTransferRequest{VendorId: "VendorX"})
	require.NoError(t, err)
	assert.Equal(t, core.DataTransferStatusAccepted, response.Status)
}

func TestOnHeartbeat(t *testing.T) {
	handler := newTestHandler(acceptedTagStore(), newHandlerLedgerStore())
	handler.SetRegistry(NewRegistry())

	response, err := handler.OnHeartbeat("cp1", &core.HeartbeatRequest{})
	require.NoError(t, err)
	require.NotNil(t, response.CurrentTime)
}
