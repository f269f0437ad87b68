// Package config provides configuration structures and utilities for metanull.
// It defines the default sanitize settings, the .metanull.yaml file with its
// named profiles, and the XDG locations of the config file and the history
// database.
package config
