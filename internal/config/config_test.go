package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "7")
	assert.Equal(t, 7*time.Second, getDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "250ms")
	assert.Equal(t, 250*time.Millisecond, getDuration("TEST_DURATION", time.Minute))

	t.Setenv("TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, getDuration("TEST_DURATION", time.Minute))
}

func TestGetIntAndBool(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getInt("TEST_INT", 1))
	t.Setenv("TEST_INT", "x")
	assert.Equal(t, 1, getInt("TEST_INT", 1))

	t.Setenv("TEST_BOOL", "yes")
	assert.True(t, getBool("TEST_BOOL", false))
	t.Setenv("TEST_BOOL", "no")
	assert.False(t, getBool("TEST_BOOL", true))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("WS_WRITE_TIMEOUT", "2")
	t.Setenv("EMBED_IMAGES", "true")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.WebSocket.WriteTimeout)
	assert.False(t, cfg.S3.Enabled(), "no bucket configured")

	t.Setenv("AWS_S3_BUCKET", "editor-assets")
	assert.True(t, Load().S3.Enabled())
}
