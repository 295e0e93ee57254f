// Package config provides configuration structures and utilities for acprobe.
// It defines the options for reaching the autocomplete API, the exploration
// alphabet, retry policy, output locations and the optional configuration
// file with per-target settings.
package config
