package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.ReminderLead)
	assert.Equal(t, 60*time.Second, cfg.DueAlertCloseAfter)
	assert.Empty(t, cfg.TelegramToken)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("REMINDER_LEAD", "10m")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("DEFAULT_TZ", "Europe/Moscow")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Minute, cfg.ReminderLead)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("REMINDER_LEAD", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := Config{DefaultTZ: "Nowhere/Atlantis"}
	assert.Equal(t, time.UTC, cfg.Location())
}
