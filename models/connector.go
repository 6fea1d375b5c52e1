package models

import (
	"sync"
	"time"
)

type Connector struct {
	Id                   int       `json:"connector_id" bson:"connector_id"`
	ChargePointId        string    `json:"charge_point_id" bson:"charge_point_id"`
	IsEnabled            bool      `json:"is_enabled" bson:"is_enabled"`
	Status               string    `json:"status" bson:"status"`
	ErrorCode            string    `json:"error_code,omitempty" bson:"error_code,omitempty"`
	Info                 string    `json:"info,omitempty" bson:"info,omitempty"`
	VendorId             string    `json:"vendor_id,omitempty" bson:"vendor_id,omitempty"`
	StatusTime           time.Time `json:"status_time" bson:"status_time"`
	CurrentTransactionId int       `json:"current_transaction_id" bson:"current_transaction_id"`
	mutex                *sync.Mutex
}

func NewConnector(id int, chargePointId string) *Connector {
	return &Connector{
		Id:                   id,
		ChargePointId:        chargePointId,
		IsEnabled:            true,
		CurrentTransactionId: -1,
		mutex:                &sync.Mutex{},
	}
}

func (c *Connector) Lock() {
	c.mutex.Lock()
}

func (c *Connector) Unlock() {
	c.mutex.Unlock()
}

func (c *Connector) Init() {
	if c.mutex == nil {
		c.mutex = &sync.Mutex{}
	}
}
