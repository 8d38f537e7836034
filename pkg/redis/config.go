package redis

import "time"

// Config holds connection settings. Use DefaultConfig for defaults; env and
// yaml values override them.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL" yaml:"url"`                          // e.g. "redis://:password@localhost:6379/0"
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" yaml:"retry_attempts"`    // total ping attempts
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" yaml:"retry_interval"`    // pause between attempts
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" yaml:"connect_timeout"` // overall budget for Connect
}

func DefaultConfig() Config {
	return Config{
		ConnectionURL:  "redis://localhost:6379/0",
		RetryAttempts:  3,
		RetryInterval:  5 * time.Second,
		ConnectTimeout: 30 * time.Second,
	}
}
