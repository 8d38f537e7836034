package main

import (
	"github.com/dmitrymomot/authsession/pkg/authclient"
	"github.com/dmitrymomot/authsession/pkg/httpserver"
	"github.com/dmitrymomot/authsession/pkg/redis"
)

type logConfig struct {
	Format string `env:"LOG_FORMAT" yaml:"format"`
	Level  string `env:"LOG_LEVEL" yaml:"level"`
}

// appConfig is the YAML file layout. Each section can also be set through
// the environment variables named by its fields.
type appConfig struct {
	Auth   authclient.Config `yaml:"auth"`
	Server httpserver.Config `yaml:"server"`
	Redis  redis.Config      `yaml:"redis"`
	Log    logConfig         `yaml:"log"`
}

func defaultAppConfig() appConfig {
	rc := redis.DefaultConfig()
	rc.ConnectionURL = "" // onboarding markers stay in memory unless a URL is configured

	return appConfig{
		Auth:   authclient.DefaultConfig(),
		Server: httpserver.DefaultConfig(),
		Redis:  rc,
		Log:    logConfig{Format: "text", Level: "warn"},
	}
}
