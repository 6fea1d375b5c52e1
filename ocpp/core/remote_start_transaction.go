package core

import "evcs/types"

const RemoteStartTransactionFeatureName = "RemoteStartTransaction"

type RemoteStartTransactionRequest struct {
	ConnectorId *int   `json:"connectorId,omitempty" validate:"omitempty,gt=0"`
	IdTag       string `json:"idTag" validate:"required,max=20"`
}

type RemoteStartTransactionResponse struct {
	Status types.RemoteStartStopStatus `json:"status" validate:"required"`
}

func (r RemoteStartTransactionRequest) GetFeatureName() string {
	return RemoteStartTransactionFeatureName
}

func (r RemoteStartTransactionResponse) GetFeatureName() string {
	return RemoteStartTransactionFeatureName
}

func NewRemoteStartTransactionRequest(idTag string) *RemoteStartTransactionRequest {
	return &RemoteStartTransactionRequest{IdTag: idTag}
}
