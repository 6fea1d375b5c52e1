package types

import (
	"fmt"
	"strings"
	"time"
)

// DateTime wraps time.Time for OCPP-J dateTime fields. Chargers are
// inconsistent about fractional seconds and timezone suffixes, so
// decoding tries a few layouts before giving up.
type DateTime struct {
	time.Time
}

func NewDateTime(time time.Time) *DateTime {
	return &DateTime{Time: time}
}

var dateTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
}

func (dt *DateTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			dt.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported dateTime value: %s", raw)
}

func (dt DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + dt.Time.UTC().Format(time.RFC3339) + `"`), nil
}
