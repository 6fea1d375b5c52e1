package firmware

import "evcs/types"

const GetDiagnosticsFeatureName = "GetDiagnostics"

type GetDiagnosticsRequest struct {
	Location      string          `json:"location" validate:"required"`
	Retries       *int            `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetryInterval *int            `json:"retryInterval,omitempty" validate:"omitempty,gte=0"`
	StartTime     *types.DateTime `json:"startTime,omitempty"`
	StopTime      *types.DateTime `json:"stopTime,omitempty"`
}

type GetDiagnosticsResponse struct {
	FileName string `json:"fileName,omitempty" validate:"max=255"`
}

func (r GetDiagnosticsRequest) GetFeatureName() string {
	return GetDiagnosticsFeatureName
}

func (r GetDiagnosticsResponse) GetFeatureName() string {
	return GetDiagnosticsFeatureName
}

func NewGetDiagnosticsRequest(location string) *GetDiagnosticsRequest {
	return &GetDiagnosticsRequest{Location: location}
}
