package models

import "time"

// PriceWindow prices energy during a recurring weekly interval. Times are
// local "HH:mm" strings compared lexicographically, both ends inclusive.
// A nil DayOfWeek applies the window to every day (0 = Sunday).
type PriceWindow struct {
	StartTime   string  `json:"start_time" bson:"start_time" validate:"required,len=5"`
	EndTime     string  `json:"end_time" bson:"end_time" validate:"required,len=5"`
	DayOfWeek   *int    `json:"day_of_week,omitempty" bson:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	PricePerKwh float64 `json:"price_per_kwh" bson:"price_per_kwh" validate:"min=0"`
}

type Tariff struct {
	Id            string        `json:"tariff_id" bson:"tariff_id"`
	Name          string        `json:"name" bson:"name"`
	ChargePointId string        `json:"charge_point_id,omitempty" bson:"charge_point_id,omitempty"`
	ConnectorId   *int          `json:"connector_id,omitempty" bson:"connector_id,omitempty"`
	Currency      string        `json:"currency" bson:"currency" validate:"required,len=3"`
	BasePrice     float64       `json:"base_price" bson:"base_price" validate:"min=0"`
	ConnectionFee float64       `json:"connection_fee" bson:"connection_fee" validate:"min=0"`
	MinimumCharge float64       `json:"minimum_charge" bson:"minimum_charge" validate:"min=0"`
	Windows       []PriceWindow `json:"windows,omitempty" bson:"windows,omitempty" validate:"omitempty,dive"`
	IsActive      bool          `json:"is_active" bson:"is_active"`
	ValidFrom     time.Time     `json:"valid_from" bson:"valid_from"`
	ValidUntil    *time.Time    `json:"valid_until,omitempty" bson:"valid_until,omitempty"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}
