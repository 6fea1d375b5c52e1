package localauth

import "evcs/types"

const SendLocalListFeatureName = "SendLocalList"

type UpdateType string
type UpdateStatus string

const (
	UpdateTypeDifferential      UpdateType   = "Differential"
	UpdateTypeFull              UpdateType   = "Full"
	UpdateStatusAccepted        UpdateStatus = "Accepted"
	UpdateStatusFailed          UpdateStatus = "Failed"
	UpdateStatusNotSupported    UpdateStatus = "NotSupported"
	UpdateStatusVersionMismatch UpdateStatus = "VersionMismatch"
)

type AuthorizationData struct {
	IdTag     string           `json:"idTag" validate:"required,max=20"`
	IdTagInfo *types.IdTagInfo `json:"idTagInfo,omitempty"`
}

type SendLocalListRequest struct {
	ListVersion            int                 `json:"listVersion" validate:"gte=0"`
	LocalAuthorizationList []AuthorizationData `json:"localAuthorizationList,omitempty" validate:"omitempty,dive"`
	UpdateType             UpdateType          `json:"updateType" validate:"required"`
}

type SendLocalListResponse struct {
	Status UpdateStatus `json:"status" validate:"required"`
}

func (r SendLocalListRequest) GetFeatureName() string {
	return SendLocalListFeatureName
}

func (r SendLocalListResponse) GetFeatureName() string {
	return SendLocalListFeatureName
}

// NewSendLocalListRequest creates a SendLocalListRequest with all required
// fields. The authorization list may be set afterward.
func NewSendLocalListRequest(version int, updateType UpdateType) *SendLocalListRequest {
	return &SendLocalListRequest{ListVersion: version, UpdateType: updateType}
}
