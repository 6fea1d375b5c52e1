package core

import "evcs/types"

const ChangeAvailabilityFeatureName = "ChangeAvailability"

type AvailabilityStatus string

const (
	AvailabilityStatusAccepted  AvailabilityStatus = "Accepted"
	AvailabilityStatusRejected  AvailabilityStatus = "Rejected"
	AvailabilityStatusScheduled AvailabilityStatus = "Scheduled"
)

type ChangeAvailabilityRequest struct {
	ConnectorId int                    `json:"connectorId" validate:"gte=0"`
	Type        types.AvailabilityType `json:"type" validate:"required"`
}

type ChangeAvailabilityResponse struct {
	Status AvailabilityStatus `json:"status" validate:"required"`
}

func (r ChangeAvailabilityRequest) GetFeatureName() string {
	return ChangeAvailabilityFeatureName
}

func (r ChangeAvailabilityResponse) GetFeatureName() string {
	return ChangeAvailabilityFeatureName
}

func NewChangeAvailabilityRequest(connectorId int, availabilityType types.AvailabilityType) *ChangeAvailabilityRequest {
	return &ChangeAvailabilityRequest{ConnectorId: connectorId, Type: availabilityType}
}
