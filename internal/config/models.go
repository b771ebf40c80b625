package config

// Settings represents the entire user configuration file. It carries tool
// preferences only; device aliases are session state and are never
// persisted here.
type Settings struct {
	Version     int          `yaml:"version"`
	Preferences *Preferences `yaml:"preferences,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	// DiscoverWindow is the duration-policy collection window in seconds.
	DiscoverWindow int `yaml:"discover_window"`
	// DiscoverCount is the quota for count-based discovery. Zero means
	// collect for the window instead.
	DiscoverCount int `yaml:"discover_count,omitempty"`
	// MulticastGroup overrides the search group address.
	MulticastGroup string `yaml:"multicast_group,omitempty"`
	// LocalAddress pins the local IP advertised during side-channel
	// negotiation instead of probing the default route.
	LocalAddress string `yaml:"local_address,omitempty"`
	// LogLevel is the default log level when the env var is unset.
	LogLevel string `yaml:"log_level,omitempty"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Preferences: &Preferences{
			DiscoverWindow: 3,
		},
	}
}
