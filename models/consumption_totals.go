package models

type ConsumptionTotals struct {
	Transactions   int64   `json:"transactions" bson:"transactions"`
	EnergyConsumed float64 `json:"energy_consumed" bson:"energy_consumed"`
	TotalCost      float64 `json:"total_cost" bson:"total_cost"`
}
