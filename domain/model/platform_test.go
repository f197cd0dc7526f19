package model_test

import (
	"errors"
	"testing"
	"time"

	"social-publisher/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatformsDeduplicates(t *testing.T) {
	got, err := model.ParsePlatforms([]string{"page-platform-b", "VIDEO-PLATFORM-A", "page-platform-b"})
	require.NoError(t, err)
	assert.Equal(t, []model.Platform{model.PlatformPage, model.PlatformVideo}, got)
}

func TestParsePlatformsRejectsEmptyAndUnknown(t *testing.T) {
	_, err := model.ParsePlatforms(nil)
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = model.ParsePlatforms([]string{"fax"})
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestRenewalStrategy(t *testing.T) {
	assert.Equal(t, model.RenewByRefresh, model.PlatformVideo.Renewal())
	assert.Equal(t, model.RenewByExtension, model.PlatformPage.Renewal())
	assert.Equal(t, model.RenewByExtension, model.PlatformPhoto.Renewal())
}

func TestConnectionExpiry(t *testing.T) {
	now := time.Now()
	exp := now.Add(3 * time.Minute)
	c := &model.PlatformConnection{Connected: true, AccessToken: "t", ExpiresAt: &exp}

	assert.True(t, c.Usable())
	assert.True(t, c.ExpiresWithin(now, 5*time.Minute))
	assert.False(t, c.Expired(now))

	c.ExpiresAt = nil
	assert.False(t, c.ExpiresWithin(now, time.Hour))

	c.Connected = false
	assert.False(t, c.Usable())
}
