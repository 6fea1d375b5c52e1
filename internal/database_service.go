package internal

import (
	"time"

	"evcs/models"
)

type Database interface {
	WriteLogMessage(data Data) error
	ReadLog() (interface{}, error)

	GetChargePoint(id string) (*models.ChargePoint, error)
	GetChargePoints() ([]models.ChargePoint, error)
	AddChargePoint(chargePoint *models.ChargePoint) error
	UpdateChargePoint(chargePoint *models.ChargePoint) error

	GetConnector(id int, chargePointId string) (*models.Connector, error)
	GetConnectors(chargePointId string) ([]*models.Connector, error)
	AddConnector(connector *models.Connector) error
	UpdateConnector(connector *models.Connector) error

	GetUserTag(id string) (*models.UserTag, error)
	AddUserTag(userTag *models.UserTag) error
	UpdateUserTag(userTag *models.UserTag) error

	GetTransaction(id int) (*models.Transaction, error)
	GetLastTransaction() (*models.Transaction, error)
	GetActiveTransaction(chargePointId string, connectorId int) (*models.Transaction, error)
	CountTransactions(chargePointId string) (int64, error)
	AddTransaction(transaction *models.Transaction) error
	UpdateTransaction(transaction *models.Transaction) error

	AddMeterSample(sample *models.MeterSample) error
	GetMeterSamples(transactionId int) ([]models.MeterSample, error)

	AddStatusHistory(status *models.StatusHistory) error
	GetStatusHistory(chargePointId string, from time.Time) ([]models.StatusHistory, error)

	GetTariff(id string) (*models.Tariff, error)
	GetTariffs(chargePointId string, connectorId int) ([]models.Tariff, error)
	AddTariff(tariff *models.Tariff) error
	UpdateTariff(tariff *models.Tariff) error

	GetConsumption(transactionId int) (*models.Consumption, error)
	AddConsumption(consumption *models.Consumption) error
	GetConsumptionTotals(from, to time.Time) (*models.ConsumptionTotals, error)

	AddAuthorizationRecord(record *models.AuthorizationRecord) error

	GetSubscriptions() ([]models.UserSubscription, error)
	GetSubscription(id int) (*models.UserSubscription, error)
	AddSubscription(subscription *models.UserSubscription) error
	DeleteSubscription(subscription *models.UserSubscription) error
}

type Data interface {
	DataType() string
}
