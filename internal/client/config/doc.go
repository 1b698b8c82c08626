// Package config loads runtime configuration for the flashboard CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables FLASHBOARD_SERVER_URL, FLASHBOARD_REQUEST_TIMEOUT
//     and FLASHBOARD_ONLINE_CHECK_INTERVAL.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the flashboard API
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
package config
