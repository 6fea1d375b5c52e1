package models

import "time"

type AuthorizationRecord struct {
	ChargePointId string     `json:"charge_point_id" bson:"charge_point_id"`
	IdTag         string     `json:"id_tag" bson:"id_tag"`
	Status        string     `json:"status" bson:"status"`
	ParentIdTag   string     `json:"parent_id_tag,omitempty" bson:"parent_id_tag,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
	Time          time.Time  `json:"time" bson:"time"`
}
