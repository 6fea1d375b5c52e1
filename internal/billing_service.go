package internal

import "evcs/models"

type BillingService interface {
	OnTransactionFinished(transaction *models.Transaction) (*models.Consumption, error)
}
