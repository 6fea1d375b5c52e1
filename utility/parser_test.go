package utility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson(t *testing.T) {
	data, err := ParseJson([]byte(`[2,"uid","Heartbeat",{}]`))
	require.NoError(t, err)
	assert.Len(t, data, 4)
	assert.Equal(t, float64(2), data[0])
	assert.Equal(t, "uid", data[1])
}

func TestParseJsonInvalid(t *testing.T) {
	_, err := ParseJson([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestToInt(t *testing.T) {
	assert.Equal(t, 1500, ToInt("1500"))
	assert.Equal(t, 1500, ToInt("1500.7"))
	assert.Equal(t, 0, ToInt("garbage"))
	assert.Equal(t, 0, ToInt(""))
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 230.5, ToFloat("230.5"))
	assert.Equal(t, float64(0), ToFloat("x"))
}

func TestContains(t *testing.T) {
	list := []string{"a", "b"}
	assert.True(t, Contains(list, "a"))
	assert.False(t, Contains(list, "c"))
	assert.False(t, Contains(nil, "a"))
}
