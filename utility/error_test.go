package utility

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(ValidationErr("bad input")))
	assert.Equal(t, CodeNotFound, CodeOf(NotFoundErr("missing")))
	assert.Equal(t, CodeConflict, CodeOf(ConflictErr("overlap")))
	assert.Equal(t, CodeNotConnected, CodeOf(NotConnectedErr("offline")))
	assert.Equal(t, CodeTimeout, CodeOf(TimeoutErr("too slow")))
	assert.Equal(t, CodeInternal, CodeOf(Err("broken")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestCodeOfWrappedError(t *testing.T) {
	cause := errors.New("socket closed")
	err := InternalErr("sending request", cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "sending request")
	assert.Contains(t, err.Error(), "socket closed")
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(TimeoutErr("late"), CodeTimeout))
	assert.False(t, IsCode(TimeoutErr("late"), CodeNotFound))
	assert.False(t, IsCode(nil, CodeTimeout))
}
