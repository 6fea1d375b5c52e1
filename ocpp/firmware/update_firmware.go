package firmware

import "evcs/types"

const UpdateFirmwareFeatureName = "UpdateFirmware"

type UpdateFirmwareRequest struct {
	Location      string          `json:"location" validate:"required"`
	Retries       *int            `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetrieveDate  *types.DateTime `json:"retrieveDate" validate:"required"`
	RetryInterval *int            `json:"retryInterval,omitempty" validate:"omitempty,gte=0"`
}

type UpdateFirmwareResponse struct {
}

func (r UpdateFirmwareRequest) GetFeatureName() string {
	return UpdateFirmwareFeatureName
}

func (r UpdateFirmwareResponse) GetFeatureName() string {
	return UpdateFirmwareFeatureName
}

func NewUpdateFirmwareRequest(location string, retrieveDate *types.DateTime) *UpdateFirmwareRequest {
	return &UpdateFirmwareRequest{Location: location, RetrieveDate: retrieveDate}
}
