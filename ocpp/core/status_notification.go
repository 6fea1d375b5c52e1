package core

import "evcs/types"

const StatusNotificationFeatureName = "StatusNotification"

type ChargePointErrorCode string

type ChargePointStatus string

const (
	ConnectorLockFailure ChargePointErrorCode = "ConnectorLockFailure"
	EVCommunicationError ChargePointErrorCode = "EVCommunicationError"
	GroundFailure        ChargePointErrorCode = "GroundFailure"
	HighTemperature      ChargePointErrorCode = "HighTemperature"
	InternalError        ChargePointErrorCode = "InternalError"
	LocalListConflict    ChargePointErrorCode = "LocalListConflict"
	NoError              ChargePointErrorCode = "NoError"
	OtherError           ChargePointErrorCode = "OtherError"
	OverCurrentFailure   ChargePointErrorCode = "OverCurrentFailure"
	OverVoltage          ChargePointErrorCode = "OverVoltage"
	PowerMeterFailure    ChargePointErrorCode = "PowerMeterFailure"
	PowerSwitchFailure   ChargePointErrorCode = "PowerSwitchFailure"
	ReaderFailure        ChargePointErrorCode = "ReaderFailure"
	ResetFailure         ChargePointErrorCode = "ResetFailure"
	UnderVoltage         ChargePointErrorCode = "UnderVoltage"
	WeakSignal           ChargePointErrorCode = "WeakSignal"

	ChargePointStatusAvailable     ChargePointStatus = "Available"
	ChargePointStatusPreparing     ChargePointStatus = "Preparing"
	ChargePointStatusCharging      ChargePointStatus = "Charging"
	ChargePointStatusSuspendedEVSE ChargePointStatus = "SuspendedEVSE"
	ChargePointStatusSuspendedEV   ChargePointStatus = "SuspendedEV"
	ChargePointStatusFinishing     ChargePointStatus = "Finishing"
	ChargePointStatusReserved      ChargePointStatus = "Reserved"
	ChargePointStatusUnavailable   ChargePointStatus = "Unavailable"
	ChargePointStatusFaulted       ChargePointStatus = "Faulted"
	ChargePointStatusOccupied      ChargePointStatus = "Occupied"
)

type StatusNotificationRequest struct {
	ConnectorId     int                  `json:"connectorId" validate:"gte=0"`
	ErrorCode       ChargePointErrorCode `json:"errorCode" validate:"required"`
	Info            string               `json:"info,omitempty" validate:"max=50"`
	Status          ChargePointStatus    `json:"status" validate:"required"`
	Timestamp       *types.DateTime      `json:"timestamp,omitempty" validate:"omitempty"`
	VendorId        string               `json:"vendorId,omitempty" validate:"max=255"`
	VendorErrorCode string               `json:"vendorErrorCode,omitempty" validate:"max=50"`
}

type StatusNotificationResponse struct {
}

func (r StatusNotificationRequest) GetFeatureName() string {
	return StatusNotificationFeatureName
}

func (r StatusNotificationResponse) GetFeatureName() string {
	return StatusNotificationFeatureName
}

func NewStatusNotificationResponse() *StatusNotificationResponse {
	return &StatusNotificationResponse{}
}

// GetStatus maps a stored status string back to the enum, defaulting to
// Unavailable for anything unrecognized.
func GetStatus(status string) ChargePointStatus {
	switch s := ChargePointStatus(status); s {
	case ChargePointStatusAvailable, ChargePointStatusPreparing, ChargePointStatusCharging,
		ChargePointStatusSuspendedEVSE, ChargePointStatusSuspendedEV, ChargePointStatusFinishing,
		ChargePointStatusReserved, ChargePointStatusUnavailable, ChargePointStatusFaulted,
		ChargePointStatusOccupied:
		return s
	}
	return ChargePointStatusUnavailable
}

func GetErrorCode(code string) ChargePointErrorCode {
	if code == "" {
		return NoError
	}
	return ChargePointErrorCode(code)
}
