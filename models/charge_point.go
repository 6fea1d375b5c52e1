package models

import "time"

type ChargePoint struct {
	Id                string    `json:"charge_point_id" bson:"charge_point_id"`
	IsEnabled         bool      `json:"is_enabled" bson:"is_enabled"`
	Title             string    `json:"title" bson:"title"`
	Description       string    `json:"description" bson:"description"`
	Model             string    `json:"model" bson:"model"`
	SerialNumber      string    `json:"serial_number" bson:"serial_number"`
	Vendor            string    `json:"vendor" bson:"vendor"`
	FirmwareVersion   string    `json:"firmware_version" bson:"firmware_version"`
	IccId             string    `json:"icc_id" bson:"icc_id"`
	Imsi              string    `json:"imsi" bson:"imsi"`
	Status            string    `json:"status" bson:"status"`
	ErrorCode         string    `json:"error_code" bson:"error_code"`
	IsConnected       bool      `json:"is_connected" bson:"is_connected"`
	LastHeartbeat     time.Time `json:"last_heartbeat" bson:"last_heartbeat"`
	FirstSeen         time.Time `json:"first_seen" bson:"first_seen"`
	HeartbeatInterval int       `json:"heartbeat_interval" bson:"heartbeat_interval"`
}
