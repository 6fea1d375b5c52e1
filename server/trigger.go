package server

import (
	"fmt"
	"time"

	"evcs/internal"
	"evcs/models"
	"evcs/ocpp/remotetrigger"
)

const featureNameTrigger = "Trigger"

// Trigger periodically asks chargers with a running transaction to push
// meter values, so consumption data keeps flowing even from chargers
// that never sample on their own.
type Trigger struct {
	connectors map[int]*models.Connector
	Register   chan *models.Connector
	Unregister chan int
	cs         *CentralSystem
	logger     internal.LogHandler
}

func NewTrigger(cs *CentralSystem, logger internal.LogHandler) *Trigger {
	return &Trigger{
		connectors: make(map[int]*models.Connector),
		Register:   make(chan *models.Connector),
		Unregister: make(chan int),
		cs:         cs,
		logger:     logger,
	}
}

func (t *Trigger) Start() {
	go t.listen()
}

// listen owns the watched-connector map alone; registrations and the
// periodic trigger tick are serialized through the same loop.
func (t *Trigger) listen() {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for _, connector := range t.connectors {
				go func(c *models.Connector) {
					_, err := t.cs.TriggerMessage(c.ChargePointId, string(remotetrigger.MessageTriggerMeterValues), c.Id)
					if err != nil {
						t.logger.FeatureEvent(featureNameTrigger, c.ChargePointId, fmt.Sprintf("error sending request: %v", err))
					}
				}(connector)
			}
		case connector := <-t.Register:
			if _, ok := t.connectors[connector.CurrentTransactionId]; ok {
				continue
			}
			t.logger.FeatureEvent(featureNameTrigger, connector.ChargePointId, fmt.Sprintf("start watching on connector: %v transaction: %v", connector.Id, connector.CurrentTransactionId))
			t.connectors[connector.CurrentTransactionId] = connector
		case transactionId := <-t.Unregister:
			if _, ok := t.connectors[transactionId]; ok {
				t.logger.FeatureEvent(featureNameTrigger, "", fmt.Sprintf("stop watching on transaction: %v", transactionId))
				delete(t.connectors, transactionId)
			}
		}
	}
}
