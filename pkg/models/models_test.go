package models

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTarget_Defaults(t *testing.T) {
	target := NewTarget("target-1", "user-1", "https://example.com", TargetTypeWebsite, time.Hour)

	assert.Equal(t, TargetStatusActive, target.Status)
	assert.Zero(t, target.FailureCount)
	assert.False(t, target.NextDueAt.After(time.Now().UTC()), "new target should be due immediately")
}

func TestTarget_Validation_StructTags(t *testing.T) {
	validate := validator.New()

	target := NewTarget("target-1", "user-1", "https://example.com/in/someone", TargetTypeProfile, time.Hour)
	assert.NoError(t, validate.Struct(target))

	target.URL = "not a url"
	assert.Error(t, validate.Struct(target))
}

func TestTarget_Validate_CronExpression(t *testing.T) {
	target := NewTarget("target-1", "user-1", "https://example.com", TargetTypeCompany, time.Hour)

	target.CronExpression = "0 9 * * 1"
	require.NoError(t, target.Validate())

	target.CronExpression = "not cron"
	assert.ErrorIs(t, target.Validate(), ErrInvalidCronExpression)
}

func TestTarget_Validate_RejectsUnknownType(t *testing.T) {
	target := NewTarget("target-1", "user-1", "https://example.com", TargetType("feed"), time.Hour)

	assert.ErrorIs(t, target.Validate(), ErrInvalidTarget)
}

func TestTarget_IsDue(t *testing.T) {
	now := time.Now().UTC()
	target := NewTarget("target-1", "user-1", "https://example.com", TargetTypeWebsite, time.Hour)

	target.NextDueAt = now.Add(-time.Minute)
	assert.True(t, target.IsDue(now))

	target.NextDueAt = now.Add(time.Minute)
	assert.False(t, target.IsDue(now))

	target.NextDueAt = now.Add(-time.Minute)
	target.Status = TargetStatusPaused
	assert.False(t, target.IsDue(now), "paused targets are never due")
}

func TestTarget_NextDueAfterSuccess(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	target := NewTarget("target-1", "user-1", "https://example.com", TargetTypeWebsite, time.Hour)

	assert.Equal(t, now.Add(time.Hour), target.NextDueAfterSuccess(now))

	// Cron cadence wins over the plain frequency.
	target.CronExpression = "0 9 * * *"
	next := target.NextDueAfterSuccess(now)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), next)
}

func TestTarget_NextDueAfterFailure_Backoff(t *testing.T) {
	now := time.Now().UTC()
	target := NewTarget("target-1", "user-1", "https://example.com", TargetTypeWebsite, time.Hour)

	assert.Equal(t, now.Add(time.Hour), target.NextDueAfterFailure(now, 1))
	assert.Equal(t, now.Add(2*time.Hour), target.NextDueAfterFailure(now, 2))
	assert.Equal(t, now.Add(8*time.Hour), target.NextDueAfterFailure(now, 4))

	// Capped at 32x regardless of how long the outage lasts.
	assert.Equal(t, now.Add(32*time.Hour), target.NextDueAfterFailure(now, 40))
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	b := Fingerprint([]byte("hello"))
	c := Fingerprint([]byte("goodbye"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestSeverity_AtLeast(t *testing.T) {
	assert.True(t, SeverityMajor.AtLeast(SeverityMinor))
	assert.True(t, SeverityMinor.AtLeast(SeverityMinor))
	assert.False(t, SeverityMinor.AtLeast(SeverityMajor))
	assert.False(t, SeverityNone.AtLeast(SeverityMinor))
}
