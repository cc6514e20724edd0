// Package config defines the tokentables configuration.
//
//   - config.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: secret masking for logs
//   - load.go: loading through confloader and conversion to component configs
//
// Configuration is read from a YAML file, TOKTABLES_ environment variables
// and command-line overrides. Later sources override earlier ones.
package config
