// Package config defines the application configuration structure and loads
// it from environment variables and an optional YAML file using viper, with
// struct-level validation.
package config
