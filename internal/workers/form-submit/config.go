package formsubmit

import "time"

type Config struct {
	Timeout time.Duration
	// FailOnConnectorError fails the job when any connector reports an error.
	// Otherwise failures are only reported in the output variables.
	FailOnConnectorError bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
