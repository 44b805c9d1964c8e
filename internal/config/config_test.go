package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Timezone)
	assert.Equal(t, "vi-VN", cfg.Locale)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.True(t, cfg.ShowHolidays)
	assert.True(t, cfg.ShowSolarTerms)
	assert.True(t, cfg.ShowReminders)

	// The default file must now exist with restrictive permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
listen: "0.0.0.0:9000"
timezone: "America/New_York"
locale: "en-US"
week_start: "sunday"
feeds:
  - url: "https://example.com/cal.ics"
    id: "work"
    name: "Work"
    reminders: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "sunday", cfg.WeekStart)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "work", cfg.Feeds[0].ID)
	assert.True(t, cfg.Feeds[0].Reminders)

	// Omitted fields fall back to defaults.
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultSettings()
	cfg.Locale = "zh-CN"
	cfg.SelectedEventSources = []string{"work"}
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "zh-CN", loaded.Locale)
	assert.Equal(t, []string{"work"}, loaded.SelectedEventSources)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "u", loaded.BasicAuth.Username)
}

func TestNormalizeUnknownWeekStart(t *testing.T) {
	cfg := &Settings{WeekStart: "wednesday"}
	cfg.Normalize()
	assert.Equal(t, "monday", cfg.WeekStart)
}

func TestLanguageTagFallsBackToEnglish(t *testing.T) {
	cfg := &Settings{Locale: "not a tag"}
	assert.Equal(t, language.English, cfg.LanguageTag())

	cfg.Locale = "vi-VN"
	assert.Equal(t, language.MustParse("vi-VN"), cfg.LanguageTag())
}

func TestFirstWeekday(t *testing.T) {
	assert.Equal(t, 1, (&Settings{WeekStart: "sunday"}).FirstWeekday())
	assert.Equal(t, 2, (&Settings{WeekStart: "monday"}).FirstWeekday())
}

func TestSelectionSets(t *testing.T) {
	cfg := &Settings{}
	assert.Nil(t, cfg.SelectedEventIDs(), "empty selection means all")

	cfg.SelectedEventSources = []string{"a", "b"}
	set := cfg.SelectedEventIDs()
	require.Len(t, set, 2)
	_, ok := set["a"]
	assert.True(t, ok)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
