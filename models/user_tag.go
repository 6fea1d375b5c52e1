package models

import "time"

type UserTag struct {
	Username       string     `json:"username" bson:"username"`
	UserId         string     `json:"user_id" bson:"user_id"`
	IdTag          string     `json:"id_tag" bson:"id_tag"`
	ParentIdTag    string     `json:"parent_id_tag,omitempty" bson:"parent_id_tag,omitempty"`
	Status         string     `json:"status" bson:"status"`
	IsEnabled      bool       `json:"is_enabled" bson:"is_enabled"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
	Note           string     `json:"note" bson:"note"`
	DateRegistered time.Time  `json:"date_registered" bson:"date_registered"`
	LastSeen       time.Time  `json:"last_seen" bson:"last_seen"`
}
