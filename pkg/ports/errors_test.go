package ports

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientClassification(t *testing.T) {
	base := errors.New("connection reset")
	err := Transient(base)

	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "transient: connection reset")
}

func TestPermanentClassification(t *testing.T) {
	base := errors.New("resource gone")
	err := Permanent(base)

	assert.True(t, IsPermanent(err))
	assert.False(t, IsTransient(err))
	assert.ErrorIs(t, err, base)
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("fetch target: %w", Transient(errors.New("timeout")))

	assert.True(t, IsTransient(err))
}

func TestNilErrorsStayNil(t *testing.T) {
	assert.NoError(t, Transient(nil))
	assert.NoError(t, Permanent(nil))
}

func TestUnmarkedErrorIsNeither(t *testing.T) {
	err := errors.New("plain")

	assert.False(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}
