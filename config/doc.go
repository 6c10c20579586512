// Package config loads engine settings from a YAML file, a .env file and
// GOVCHAT_-prefixed environment variables, in rising precedence.
package config
