// Package config exposes runtime configuration behind a small interface so
// components receive an explicit, injected configuration object instead of
// reading a process-wide singleton.
package config

import (
	"io"
	"time"
)

// Config retrieves typed configuration values by dotted key. Implementations
// return zero values for missing keys; callers own their defaults.
type Config interface {
	io.Closer

	// GetString retrieves the value for key as a string.
	GetString(key string) string

	// GetInt retrieves the value for key as an int.
	GetInt(key string) int

	// GetInt32 retrieves the value for key as an int32.
	GetInt32(key string) int32

	// GetBool retrieves the value for key as a bool.
	GetBool(key string) bool

	// GetFloat64 retrieves the value for key as a float64.
	GetFloat64(key string) float64

	// GetArray retrieves the value for key as a string slice.
	// The value is stored as <element1>,<element2>,...
	GetArray(key string) []string

	// GetSecond retrieves the value for key as a duration in seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves the value for key as a duration in minutes.
	GetMinute(key string) time.Duration
}
