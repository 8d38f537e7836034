package config

import "errors"

// Package-specific errors
var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrReadingFile is returned when a YAML or .env file cannot be read
	ErrReadingFile = errors.New("failed to read config file")

	// ErrParsingYAML is returned when a YAML file cannot be decoded into the config struct
	ErrParsingYAML = errors.New("failed to parse yaml config")

	// ErrNilPointer is returned when a nil pointer is provided to Load
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)
