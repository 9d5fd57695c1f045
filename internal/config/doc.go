// Package config loads, validates, and normalizes the TOML configuration
// shared by the reelforge daemon and CLI.
//
// Configuration resolution checks an explicit path first, then the user
// config directory, then a project-local reelforge.toml. Missing files fall
// back to built-in defaults so the daemon can start with zero configuration.
package config
