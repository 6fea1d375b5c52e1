package models

import (
	"sync"
	"time"
)

const (
	TransactionStatusActive    = "Active"
	TransactionStatusCompleted = "Completed"
	TransactionStatusStopped   = "Stopped"
)

type Transaction struct {
	Id            int        `json:"transaction_id" bson:"transaction_id"`
	ChargePointId string     `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId   int        `json:"connector_id" bson:"connector_id"`
	IdTag         string     `json:"id_tag" bson:"id_tag"`
	ReservationId *int       `json:"reservation_id,omitempty" bson:"reservation_id,omitempty"`
	MeterStart    int        `json:"meter_start" bson:"meter_start"`
	MeterStop     *int       `json:"meter_stop,omitempty" bson:"meter_stop,omitempty"`
	Status        string     `json:"status" bson:"status"`
	Reason        string     `json:"reason,omitempty" bson:"reason,omitempty"`
	TimeStart     time.Time  `json:"time_start" bson:"time_start"`
	TimeStarted   time.Time  `json:"time_started" bson:"time_started"`
	TimeStop      *time.Time `json:"time_stop,omitempty" bson:"time_stop,omitempty"`
	StopIdTag     string     `json:"stop_id_tag,omitempty" bson:"stop_id_tag,omitempty"`
	IdTagStatus   string     `json:"id_tag_status" bson:"id_tag_status"`
	IdTagParent   string     `json:"id_tag_parent,omitempty" bson:"id_tag_parent,omitempty"`
	Username      string     `json:"username,omitempty" bson:"username,omitempty"`
	mutex         *sync.Mutex
}

func (t *Transaction) IsFinished() bool {
	return t.Status != TransactionStatusActive
}

func (t *Transaction) Lock() {
	t.mutex.Lock()
}

func (t *Transaction) Unlock() {
	t.mutex.Unlock()
}

func (t *Transaction) Init() {
	if t.mutex == nil {
		t.mutex = &sync.Mutex{}
	}
}
