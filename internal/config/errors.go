package config

import "errors"

// Sentinel kinds returned by Load and Validate.
var (
	// ErrInvalidConfig marks values that fail validation, such as an unknown
	// store backend or a cooling rate outside (0, 1).
	ErrInvalidConfig = errors.New("invalid wrestlerank config")
	// ErrLoadConfig marks an unreadable config file or environment layer.
	ErrLoadConfig = errors.New("load wrestlerank config")
)
