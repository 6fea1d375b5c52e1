package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeUnmarshalLayouts(t *testing.T) {
	cases := []string{
		`"2026-03-10T10:00:00Z"`,
		`"2026-03-10T10:00:00.123Z"`,
		`"2026-03-10T10:00:00"`,
		`"2026-03-10T10:00:00.000"`,
	}
	for _, raw := range cases {
		var dt DateTime
		require.NoError(t, json.Unmarshal([]byte(raw), &dt), raw)
		assert.Equal(t, 2026, dt.Year(), raw)
		assert.Equal(t, 10, dt.Hour(), raw)
	}
}

func TestDateTimeUnmarshalInvalid(t *testing.T) {
	var dt DateTime
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &dt))
}

func TestDateTimeUnmarshalNull(t *testing.T) {
	var dt DateTime
	require.NoError(t, json.Unmarshal([]byte(`null`), &dt))
	assert.True(t, dt.IsZero())
}

func TestDateTimeMarshal(t *testing.T) {
	dt := NewDateTime(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC))
	data, err := json.Marshal(dt)
	require.NoError(t, err)
	assert.Equal(t, `"2026-03-10T10:00:00Z"`, string(data))
}
