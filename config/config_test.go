package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4444/wd/hub", c.WebDriver.URL)
	assert.Equal(t, "chrome", c.WebDriver.Browser)
	assert.True(t, c.WebDriver.Headless)
	assert.Equal(t, "http://127.0.0.1:4723", c.Appium.URL)
	assert.Equal(t, "emulator-5554", c.Android.DeviceName)
	assert.Equal(t, "iPhone 15", c.IOS.DeviceName)
	assert.Equal(t, "http://localhost:8080", c.Backend.URL)
	assert.Equal(t, "announcements", c.Backend.Resource)
	assert.Equal(t, "Authorization", c.Backend.AdminHeader)
	assert.Equal(t, 10*time.Second, c.Timeouts.HTTP)
	assert.Equal(t, "screenshots", c.ScreenshotDir)
	assert.Equal(t, "web", c.DefaultPlatform)
	assert.False(t, c.SkipBuild)
	assert.False(t, c.DebugScreenshots)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PETFINDER_BACKEND_URL", "http://backend:9090")
	t.Setenv("PETFINDER_BACKEND_ADMINTOKEN", "secret")
	t.Setenv("PETFINDER_ANDROID_APP", "/tmp/app.apk")
	t.Setenv("PETFINDER_SKIPBUILD", "true")
	t.Setenv("PETFINDER_DEBUGSCREENSHOTS", "1")
	t.Setenv("PETFINDER_TIMEOUTS_ELEMENT", "3s")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9090", c.Backend.URL)
	assert.Equal(t, "secret", c.Backend.AdminToken)
	assert.Equal(t, "/tmp/app.apk", c.Android.App)
	assert.True(t, c.SkipBuild)
	assert.True(t, c.DebugScreenshots)
	assert.Equal(t, 3*time.Second, c.Timeouts.Element)
}

func TestLoadRejectsInvalidURL(t *testing.T) {
	t.Setenv("PETFINDER_BACKEND_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
}
