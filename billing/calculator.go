package billing

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"evcs/internal"
	"evcs/models"
	"evcs/tariff"
	"evcs/utility"
)

const featureName = "Billing"

// Store is the subset of the database the calculator needs.
type Store interface {
	GetConsumption(transactionId int) (*models.Consumption, error)
	AddConsumption(consumption *models.Consumption) error
}

// Calculator derives energy and cost from a completed transaction.
// One consumption record per transaction id; a repeated call returns
// the stored record instead of computing a second one.
type Calculator struct {
	store    Store
	tariffs  *tariff.Resolver
	logger   internal.LogHandler
	location *time.Location
}

func NewCalculator(store Store, tariffs *tariff.Resolver, location *time.Location) *Calculator {
	return &Calculator{
		store:    store,
		tariffs:  tariffs,
		location: location,
	}
}

func (c *Calculator) SetLogger(logger internal.LogHandler) {
	c.logger = logger
}

func (c *Calculator) OnTransactionFinished(transaction *models.Transaction) (*models.Consumption, error) {
	if transaction == nil {
		return nil, utility.ValidationErr("transaction is nil")
	}
	if transaction.MeterStop == nil || transaction.TimeStop == nil {
		return nil, utility.ValidationErr(fmt.Sprintf("transaction %d has no stop data", transaction.Id))
	}

	// Without a store the result is derived on every call and the
	// transaction id check carries the idempotency.
	if c.store == nil {
		return c.calculate(transaction), nil
	}

	existing, err := c.store.GetConsumption(transaction.Id)
	if err != nil && !isNotFound(err) {
		return nil, utility.InternalErr("reading consumption", err)
	}
	if existing != nil {
		return existing, nil
	}

	consumption := c.calculate(transaction)
	if err = c.store.AddConsumption(consumption); err != nil {
		return nil, utility.InternalErr("adding consumption", err)
	}
	if c.logger != nil {
		c.logger.FeatureEvent(featureName, transaction.ChargePointId, fmt.Sprintf(
			"transaction %d: %.3f kWh, %.2f %s", transaction.Id,
			consumption.EnergyConsumed, consumption.TotalCost, consumption.Currency))
	}
	return consumption, nil
}

func (c *Calculator) calculate(transaction *models.Transaction) *models.Consumption {
	meterStop := *transaction.MeterStop
	stopTime := *transaction.TimeStop
	energy := float64(meterStop-transaction.MeterStart) / 1000

	consumption := &models.Consumption{
		TransactionId:  transaction.Id,
		ChargePointId:  transaction.ChargePointId,
		ConnectorId:    transaction.ConnectorId,
		IdTag:          transaction.IdTag,
		MeterStart:     transaction.MeterStart,
		MeterStop:      meterStop,
		EnergyConsumed: energy,
		TimeStart:      transaction.TimeStart,
		TimeStop:       stopTime,
		Duration:       stopTime.Sub(transaction.TimeStart).Seconds(),
		Time:           time.Now().UTC(),
	}

	plan, err := c.tariffs.ResolveActive(transaction.ChargePointId, transaction.ConnectorId, transaction.TimeStart.In(c.location))
	if err != nil {
		if c.logger != nil {
			c.logger.Error("resolving tariff", err)
		}
		return consumption
	}
	if plan == nil {
		return consumption
	}

	price := tariff.PriceAt(plan, transaction.TimeStart.In(c.location))
	consumption.TariffId = plan.Id
	consumption.PricePerKwh = price
	consumption.ConnectionFee = plan.ConnectionFee
	consumption.Currency = plan.Currency
	consumption.EnergyCost = energy * price
	consumption.TotalCost = consumption.EnergyCost + plan.ConnectionFee
	if plan.MinimumCharge > 0 && consumption.TotalCost < plan.MinimumCharge {
		consumption.TotalCost = plan.MinimumCharge
	}
	return consumption
}

func isNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments) || utility.IsCode(err, utility.CodeNotFound)
}
