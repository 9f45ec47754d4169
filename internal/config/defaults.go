package config

// Default returns the baseline service configuration used when no config file
// is provided.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = "./_build"
	}
	if c.Build.Manifest == "" {
		c.Build.Manifest = ".docs.yaml"
	}
	if c.Build.StepTimeout == "" {
		c.Build.StepTimeout = "30m"
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = RetryBackoffLinear
	}
	if c.Retry.InitialDelay == "" {
		c.Retry.InitialDelay = "1s"
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = "30s"
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 2
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = "127.0.0.1:8787"
	}
	if c.Daemon.WatchDebounce == "" {
		c.Daemon.WatchDebounce = "2s"
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "docrunner"
	}
}
