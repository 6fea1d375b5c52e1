package ocpp

// Request is a message initiated by either party of an OCPP-J session.
type Request interface {
	// GetFeatureName returns the unique name of the feature this request belongs to.
	GetFeatureName() string
}

// Response is the confirmation matching a Request.
type Response interface {
	GetFeatureName() string
}
