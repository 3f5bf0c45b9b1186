package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := Wrap(ErrNotFound, "resolve")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsInvalidRequest(err))
	assert.Contains(t, err.Error(), "resolve")
}

func TestNewInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("unknown category %q", "Color")
	assert.True(t, IsInvalidRequest(err))
	assert.Contains(t, err.Error(), `unknown category "Color"`)
}

func TestIsHelpersOnNil(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsInvalidRequest(nil))
}

func TestAssertionFailure(t *testing.T) {
	err := AssertionFailedf("unexpected kind %d", 7)
	assert.True(t, IsAssertionFailure(err))
}
