package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "server",
	Name:      "connections_active",
	Help:      "Number of active ws connections",
})

var activeTransactionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "server",
	Name:      "transactions_active",
	Help:      "Number of active transactions",
})

var commandTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "command_timeouts_total",
	Help:      "Total number of outbound commands that timed out.",
}, []string{"feature", "charge_point_id"})

var energyCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "energy_consumed_kwh_total",
	Help:      "Total energy billed across completed transactions.",
})

var errorCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "vendor_error_count",
	Help:      "Total number of errors by vendor code.",
}, []string{"code", "charge_point_id"})

func observeConnections(count int) {
	connectionsGauge.Set(float64(count))
}

func observeTransactions(delta int) {
	activeTransactionsGauge.Add(float64(delta))
}

func observeCommandTimeout(feature, chargePointId string) {
	commandTimeouts.With(prometheus.Labels{"feature": feature, "charge_point_id": chargePointId}).Inc()
}

func observeEnergy(kwh float64) {
	if kwh > 0 {
		energyCounter.Add(kwh)
	}
}

func observeError(chargePointId, code string) {
	if len(code) == 0 || len(chargePointId) == 0 {
		return
	}
	errorCounts.With(prometheus.Labels{"code": code, "charge_point_id": chargePointId}).Inc()
}
