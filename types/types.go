package types

const SubProtocol16 = "ocpp1.6"

type AuthorizationStatus string

const (
	AuthorizationStatusAccepted     AuthorizationStatus = "Accepted"
	AuthorizationStatusBlocked      AuthorizationStatus = "Blocked"
	AuthorizationStatusExpired      AuthorizationStatus = "Expired"
	AuthorizationStatusInvalid      AuthorizationStatus = "Invalid"
	AuthorizationStatusConcurrentTx AuthorizationStatus = "ConcurrentTx"
)

type IdTagInfo struct {
	ExpiryDate  *DateTime           `json:"expiryDate,omitempty" validate:"omitempty"`
	ParentIdTag string              `json:"parentIdTag,omitempty" validate:"omitempty,max=20"`
	Status      AuthorizationStatus `json:"status" validate:"required"`
}

func NewIdTagInfo(status AuthorizationStatus) *IdTagInfo {
	return &IdTagInfo{Status: status}
}

type ReadingContext string
type ValueFormat string
type Measurand string
type Phase string
type Location string
type UnitOfMeasure string

const (
	ReadingContextInterruptionBegin     ReadingContext = "Interruption.Begin"
	ReadingContextInterruptionEnd       ReadingContext = "Interruption.End"
	ReadingContextOther                 ReadingContext = "Other"
	ReadingContextSampleClock           ReadingContext = "Sample.Clock"
	ReadingContextSamplePeriodic        ReadingContext = "Sample.Periodic"
	ReadingContextTransactionBegin      ReadingContext = "Transaction.Begin"
	ReadingContextTransactionEnd        ReadingContext = "Transaction.End"
	ReadingContextTrigger               ReadingContext = "Trigger"
	ValueFormatRaw                      ValueFormat    = "Raw"
	ValueFormatSignedData               ValueFormat    = "SignedData"
	MeasurandCurrentImport              Measurand      = "Current.Import"
	MeasurandCurrentOffered             Measurand      = "Current.Offered"
	MeasurandEnergyActiveImportRegister Measurand      = "Energy.Active.Import.Register"
	MeasurandEnergyActiveImportInterval Measurand      = "Energy.Active.Import.Interval"
	MeasurandPowerActiveImport          Measurand      = "Power.Active.Import"
	MeasurandPowerOffered               Measurand      = "Power.Offered"
	MeasurandSoC                        Measurand      = "SoC"
	MeasurandTemperature                Measurand      = "Temperature"
	MeasurandVoltage                    Measurand      = "Voltage"
	PhaseL1                             Phase          = "L1"
	PhaseL2                             Phase          = "L2"
	PhaseL3                             Phase          = "L3"
	PhaseN                              Phase          = "N"
	LocationBody                        Location       = "Body"
	LocationCable                       Location       = "Cable"
	LocationEV                          Location       = "EV"
	LocationInlet                       Location       = "Inlet"
	LocationOutlet                      Location       = "Outlet"
	UnitOfMeasureWh                     UnitOfMeasure  = "Wh"
	UnitOfMeasureKWh                    UnitOfMeasure  = "kWh"
	UnitOfMeasureW                      UnitOfMeasure  = "W"
	UnitOfMeasureKW                     UnitOfMeasure  = "kW"
	UnitOfMeasureA                      UnitOfMeasure  = "A"
	UnitOfMeasureV                      UnitOfMeasure  = "V"
	UnitOfMeasureCelsius                UnitOfMeasure  = "Celsius"
	UnitOfMeasurePercent                UnitOfMeasure  = "Percent"
)

type SampledValue struct {
	Value     string         `json:"value" validate:"required"`
	Context   ReadingContext `json:"context,omitempty" validate:"omitempty"`
	Format    ValueFormat    `json:"format,omitempty" validate:"omitempty"`
	Measurand Measurand      `json:"measurand,omitempty" validate:"omitempty"`
	Phase     Phase          `json:"phase,omitempty" validate:"omitempty"`
	Location  Location       `json:"location,omitempty" validate:"omitempty"`
	Unit      UnitOfMeasure  `json:"unit,omitempty" validate:"omitempty"`
}

type MeterValue struct {
	Timestamp    *DateTime      `json:"timestamp" validate:"required"`
	SampledValue []SampledValue `json:"sampledValue" validate:"required,min=1,dive"`
}

type RemoteStartStopStatus string

const (
	RemoteStartStopStatusAccepted RemoteStartStopStatus = "Accepted"
	RemoteStartStopStatusRejected RemoteStartStopStatus = "Rejected"
)

type AvailabilityType string

const (
	AvailabilityTypeOperative   AvailabilityType = "Operative"
	AvailabilityTypeInoperative AvailabilityType = "Inoperative"
)
