package models

// Settings is the singleton configuration blob stored under the "settings"
// key. It is read and written as a whole; unknown fields round-trip through
// Extra so older clients never drop newer settings.
type Settings struct {
	Theme    string `json:"theme,omitempty"`
	Locale   string `json:"locale,omitempty"`
	PageSize int    `json:"pageSize,omitempty" validate:"gte=0"`
	ViewMode string `json:"viewMode,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// DefaultSettings returns the settings written on first run.
func DefaultSettings() Settings {
	return Settings{
		Theme:    "light",
		Locale:   "en",
		PageSize: 25,
		ViewMode: "grid",
	}
}
