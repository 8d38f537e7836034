// Package config loads typed configuration structs from YAML files, `.env`
// files and the process environment.
//
// Sources are applied in increasing precedence:
//
//  1. Whatever the caller put into the struct before loading (typically a
//     DefaultConfig() value).
//  2. An optional YAML file (WithYAMLFile), decoded with gopkg.in/yaml.v3.
//  3. `.env` files (WithEnvFiles, or the default `.env` when present), read
//     with github.com/joho/godotenv. They never override variables that are
//     already set in the process environment.
//  4. Environment variables, parsed with github.com/caarlos0/env/v11 using
//     `env` struct tags.
//
// Because values set by earlier sources must survive, config structs should
// not rely on `envDefault` tags; put defaults in a constructor instead.
//
// Example:
//
//	cfg := authclient.DefaultConfig()
//	if err := config.Load(&cfg, config.WithYAMLFile(path)); err != nil {
//		return err
//	}
package config
