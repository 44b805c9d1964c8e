// Package config provides the yaml-backed settings store: load with
// first-run creation, normalization of partial files, and atomic save
// with 0600 permissions.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// FeedConfig describes a single ICS subscription source.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for selection and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in source lists.
	Name string `yaml:"name" json:"name"`
	// Reminders marks the feed's VTODO components as reminder items.
	Reminders bool `yaml:"reminders" json:"reminders"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Settings is the top-level application configuration.
type Settings struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as the canonical display zone
	// (e.g. "Asia/Ho_Chi_Minh"). Day boundaries are computed in it.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale is the BCP-47 display tag. Supported bases: vi, en, zh;
	// the region part drives public-holiday classification.
	Locale string `yaml:"locale" json:"locale"`

	// WeekStart controls the first weekday of the grid:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	ShowHolidays   bool `yaml:"show_holidays" json:"show_holidays"`
	ShowSolarTerms bool `yaml:"show_solar_terms" json:"show_solar_terms"`
	ShowReminders  bool `yaml:"show_reminders" json:"show_reminders"`

	// SelectedEventSources / SelectedReminderSources restrict fetching
	// to the named feed IDs. Empty means all sources of that kind.
	SelectedEventSources    []string `yaml:"selected_event_sources" json:"selected_event_sources"`
	SelectedReminderSources []string `yaml:"selected_reminder_sources" json:"selected_reminder_sources"`

	// CachePath is the SQLite agenda cache file.
	CachePath string `yaml:"cache_path" json:"cache_path"`

	// FeedCacheDir is the HTTP disk-cache directory for ICS bodies.
	FeedCacheDir string `yaml:"feed_cache_dir" json:"feed_cache_dir"`

	// SolarTermsPath optionally points at a solar-term table resource
	// (yyyy-MM-dd → canonical term name). Empty derives the table from
	// the calendrical library.
	SolarTermsPath string `yaml:"solar_terms_path" json:"solar_terms_path"`

	// LogLevel: debug|info|error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Feeds is the list of subscribed ICS sources.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultSettings returns an in-memory default configuration.
func DefaultSettings() *Settings {
	return &Settings{
		Listen:         "127.0.0.1:8080",
		Timezone:       "Asia/Ho_Chi_Minh",
		Locale:         "vi-VN",
		WeekStart:      "monday",
		RefreshCron:    "*/15 * * * *",
		ShowHolidays:   true,
		ShowSolarTerms: true,
		ShowReminders:  true,
		CachePath:      "./var/agenda-cache.sqlite",
		FeedCacheDir:   "./var/feed-cache",
		LogLevel:       "info",
		Feeds:          []FeedConfig{},
		BasicAuth:      nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g. older versions) still behave correctly.
func (s *Settings) Normalize() {
	if s.Listen == "" {
		s.Listen = "127.0.0.1:8080"
	}
	if s.Timezone == "" {
		s.Timezone = "Asia/Ho_Chi_Minh"
	}
	if s.Locale == "" {
		s.Locale = "vi-VN"
	}
	switch s.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		s.WeekStart = "monday"
	}
	if s.RefreshCron == "" {
		s.RefreshCron = "*/15 * * * *"
	}
	if s.CachePath == "" {
		s.CachePath = "./var/agenda-cache.sqlite"
	}
	if s.FeedCacheDir == "" {
		s.FeedCacheDir = "./var/feed-cache"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.Feeds == nil {
		s.Feeds = []FeedConfig{}
	}
}

// LanguageTag parses the configured locale; invalid tags degrade to
// English rather than failing.
func (s *Settings) LanguageTag() language.Tag {
	tag, err := language.Parse(s.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// FirstWeekday maps WeekStart onto the 1=Sunday…7=Saturday convention
// the grid builder uses.
func (s *Settings) FirstWeekday() int {
	if s.WeekStart == "sunday" {
		return 1
	}
	return 2
}

// SelectedEventIDs returns the selection set, or nil for "all".
func (s *Settings) SelectedEventIDs() map[string]struct{} {
	return selectionSet(s.SelectedEventSources)
}

// SelectedReminderIDs returns the selection set, or nil for "all".
func (s *Settings) SelectedReminderIDs() map[string]struct{} {
	return selectionSet(s.SelectedReminderSources)
}

func selectionSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed,
//     write a default config with 0600 perms, return the defaults.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultSettings()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path: parent directory ensured
// (0700), atomic temp-file + rename, final permissions 0600.
func Save(path string, cfg *Settings) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".lunacal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method delegating to the package-level Save.
func (s *Settings) Save(path string) error {
	return Save(path, s)
}
