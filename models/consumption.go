package models

import "time"

type Consumption struct {
	TransactionId  int       `json:"transaction_id" bson:"transaction_id"`
	ChargePointId  string    `json:"charge_point_id" bson:"charge_point_id"`
	ConnectorId    int       `json:"connector_id" bson:"connector_id"`
	IdTag          string    `json:"id_tag" bson:"id_tag"`
	MeterStart     int       `json:"meter_start" bson:"meter_start"`
	MeterStop      int       `json:"meter_stop" bson:"meter_stop"`
	EnergyConsumed float64   `json:"energy_consumed" bson:"energy_consumed"`
	TariffId       string    `json:"tariff_id,omitempty" bson:"tariff_id,omitempty"`
	PricePerKwh    float64   `json:"price_per_kwh" bson:"price_per_kwh"`
	ConnectionFee  float64   `json:"connection_fee" bson:"connection_fee"`
	EnergyCost     float64   `json:"energy_cost" bson:"energy_cost"`
	TotalCost      float64   `json:"total_cost" bson:"total_cost"`
	Currency       string    `json:"currency,omitempty" bson:"currency,omitempty"`
	TimeStart      time.Time `json:"time_start" bson:"time_start"`
	TimeStop       time.Time `json:"time_stop" bson:"time_stop"`
	Duration       float64   `json:"duration" bson:"duration"`
	Time           time.Time `json:"time" bson:"time"`
}
