package config

// DefaultConfig returns the default configuration, including a demo task set
// shaped like a game's asset loading phase.
func DefaultConfig() *Config {
	return &Config{
		Workers:     0,
		LogLevel:    "info",
		JournalPath: ".taskloader/journal.db",
		Retry: RetryConfig{
			Enabled:             true,
			InitialInterval:     "50ms",
			MaxInterval:         "1s",
			MaxElapsedTime:      "10s",
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
		},
		Tasks: DefaultTasks(),
	}
}

// DefaultTasks returns the demo task set.
func DefaultTasks() []TaskConfig {
	return []TaskConfig{
		{ID: "settings", Description: "Reading settings", Duration: "50ms"},
		{ID: "shaders", Description: "Compiling shaders", DependsOn: []string{"settings"}, Duration: "120ms", Resources: []string{"gpu"}, Flaky: 1},
		{ID: "textures", Description: "Loading textures", DependsOn: []string{"settings"}, Duration: "200ms", Resources: []string{"gpu"}},
		{ID: "models", Description: "Loading models", DependsOn: []string{"settings"}, Duration: "150ms"},
		{ID: "audio", Description: "Loading audio", DependsOn: []string{"settings"}, Duration: "120ms"},
		{ID: "terrain", Description: "Building terrain", DependsOn: []string{"textures", "models", "shaders"}, Duration: "250ms"},
		{ID: "scene", Description: "Assembling scene", DependsOn: []string{"terrain", "audio"}, Duration: "100ms"},
	}
}
