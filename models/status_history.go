package models

import "time"

type StatusHistory struct {
	ChargePointId string    `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId   int       `json:"connector_id" bson:"connector_id"`
	Status        string    `json:"status" bson:"status"`
	ErrorCode     string    `json:"error_code,omitempty" bson:"error_code,omitempty"`
	Info          string    `json:"info,omitempty" bson:"info,omitempty"`
	Time          time.Time `json:"time" bson:"time"`
}
