package models

import "time"

type MeterSample struct {
	ChargePointId string    `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId   int       `json:"connector_id" bson:"connector_id"`
	TransactionId *int      `json:"transaction_id,omitempty" bson:"transaction_id,omitempty"`
	Time          time.Time `json:"time" bson:"time"`
	Value         string    `json:"value" bson:"value"`
	Measurand     string    `json:"measurand" bson:"measurand"`
	Unit          string    `json:"unit" bson:"unit"`
	Context       string    `json:"context,omitempty" bson:"context,omitempty"`
	Format        string    `json:"format,omitempty" bson:"format,omitempty"`
	Phase         string    `json:"phase,omitempty" bson:"phase,omitempty"`
	Location      string    `json:"location,omitempty" bson:"location,omitempty"`
}
