package utility

import (
	"strconv"

	"github.com/google/uuid"
)

// ToInt converts a metering value string to an integer; malformed
// values read as 0 so one bad sample cannot poison a batch.
func ToInt(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// ToFloat converts a metering value string to a float64.
func ToFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func NewUUID() string {
	return uuid.New().String()
}
