package config

import "errors"

// ErrInvalidConfig is returned when configuration values cannot be used
var ErrInvalidConfig = errors.New("invalid configuration")
