package ledger

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"evcs/internal"
	"evcs/models"
	"evcs/ocpp/core"
	"evcs/utility"
)

const allocateAttempts = 10

// Store is the subset of the database the ledger needs.
type Store interface {
	GetTransaction(id int) (*models.Transaction, error)
	GetLastTransaction() (*models.Transaction, error)
	GetActiveTransaction(chargePointId string, connectorId int) (*models.Transaction, error)
	AddTransaction(transaction *models.Transaction) error
	UpdateTransaction(transaction *models.Transaction) error
}

type StartData struct {
	ChargePointId string
	ConnectorId   int
	IdTag         string
	MeterStart    int
	ReservationId *int
	Timestamp     time.Time
	IdTagStatus   string
	IdTagParent   string
	Username      string
}

type StopData struct {
	MeterStop int
	Reason    string
	IdTag     string
	Timestamp time.Time
}

type Ledger struct {
	store    Store
	logger   internal.LogHandler
	mutex    sync.Mutex
	memoryId int
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) SetLogger(logger internal.LogHandler) {
	l.logger = logger
}

// AllocateId produces a transaction id never previously used. It proposes
// max+1 and re-checks the store before returning, retrying on collision;
// the mutex serializes local sessions while the store re-check guards
// against ids seeded from outside. An empty store seeds from epoch
// seconds so restarts cannot collide with external ids.
func (l *Ledger) AllocateId() (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.allocateId()
}

func (l *Ledger) allocateId() (int, error) {
	if l.store == nil {
		if l.memoryId == 0 {
			l.memoryId = int(time.Now().Unix())
		}
		l.memoryId++
		return l.memoryId, nil
	}

	for attempt := 0; attempt < allocateAttempts; attempt++ {
		candidate := int(time.Now().Unix())
		last, err := l.store.GetLastTransaction()
		if err != nil && !isNotFound(err) {
			return 0, utility.InternalErr("reading last transaction", err)
		}
		if last != nil {
			candidate = last.Id + 1
		}
		existing, err := l.store.GetTransaction(candidate)
		if err != nil && !isNotFound(err) {
			return 0, utility.InternalErr("checking transaction id", err)
		}
		if existing == nil {
			return candidate, nil
		}
	}
	fallback := int(time.Now().Unix()) + rand.Intn(1000)
	if l.logger != nil {
		l.logger.Warn(fmt.Sprintf("transaction id allocation exhausted retries; using %d", fallback))
	}
	return fallback, nil
}

// Start allocates an id and persists the new transaction while holding
// the allocation lock; an id proposed to one session must be durable
// before another session can read the current maximum.
func (l *Ledger) Start(data StartData) (*models.Transaction, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	id, err := l.allocateId()
	if err != nil {
		return nil, err
	}
	transaction := &models.Transaction{
		Id:            id,
		ChargePointId: data.ChargePointId,
		ConnectorId:   data.ConnectorId,
		IdTag:         data.IdTag,
		ReservationId: data.ReservationId,
		MeterStart:    data.MeterStart,
		Status:        models.TransactionStatusActive,
		TimeStart:     data.Timestamp,
		TimeStarted:   time.Now().UTC(),
		IdTagStatus:   data.IdTagStatus,
		IdTagParent:   data.IdTagParent,
		Username:      data.Username,
	}
	transaction.Init()
	if l.store != nil {
		if err = l.store.AddTransaction(transaction); err != nil {
			return nil, utility.InternalErr("adding transaction", err)
		}
	}
	return transaction, nil
}

// Find reads a transaction by its business id.
func (l *Ledger) Find(transactionId int) (*models.Transaction, error) {
	if l.store == nil {
		return nil, utility.NotFoundErr(fmt.Sprintf("transaction %d not found", transactionId))
	}
	transaction, err := l.store.GetTransaction(transactionId)
	if err != nil {
		if isNotFound(err) {
			return nil, utility.NotFoundErr(fmt.Sprintf("transaction %d not found", transactionId))
		}
		return nil, utility.InternalErr("reading transaction", err)
	}
	return transaction, nil
}

// Stop closes a transaction. A second stop for an already finished
// transaction returns the stored record unchanged; redelivered stop
// events must stay acknowledgeable.
func (l *Ledger) Stop(transactionId int, data StopData) (*models.Transaction, error) {
	transaction, err := l.Find(transactionId)
	if err != nil {
		return nil, err
	}
	if transaction.IsFinished() {
		if l.logger != nil {
			l.logger.Warn(fmt.Sprintf("transaction %d already finished", transactionId))
		}
		return transaction, nil
	}

	meterStop := data.MeterStop
	stopTime := data.Timestamp
	transaction.MeterStop = &meterStop
	transaction.TimeStop = &stopTime
	transaction.Reason = data.Reason
	transaction.StopIdTag = data.IdTag
	transaction.Status = StopStatus(data.Reason)

	if err = l.store.UpdateTransaction(transaction); err != nil {
		return nil, utility.InternalErr("updating transaction", err)
	}
	return transaction, nil
}

func (l *Ledger) Active(chargePointId string, connectorId int) (*models.Transaction, error) {
	if l.store == nil {
		return nil, nil
	}
	transaction, err := l.store.GetActiveTransaction(chargePointId, connectorId)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, utility.InternalErr("reading active transaction", err)
	}
	return transaction, nil
}

// StopStatus maps a stop reason to the final transaction status. Only an
// emergency stop or a hard reset marks the transaction Stopped.
func StopStatus(reason string) string {
	switch reason {
	case string(core.ReasonEmergencyStop), string(core.ReasonHardReset):
		return models.TransactionStatusStopped
	default:
		return models.TransactionStatusCompleted
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || utility.IsCode(err, utility.CodeNotFound)
}
