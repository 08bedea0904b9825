package config

// Default values for configuration options — "layer 0" of the
// defaults -> file -> env override chain (§6).
const (
	DefaultPollInterval = 300
	DefaultMaxWorkers   = 4
)

// DefaultConfig returns a Config populated with all default values, used
// both as the decode target (so unset keys retain defaults) and as the
// fallback when no config file exists yet.
func DefaultConfig() *Config {
	return &Config{
		PollInterval: DefaultPollInterval,
		MaxWorkers:   DefaultMaxWorkers,
	}
}
