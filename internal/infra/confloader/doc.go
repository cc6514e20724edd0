// Package confloader loads layered configuration with koanf.
//
// Sources are merged in order, later ones winning:
//
//  1. Values already present in the target struct (defaults)
//  2. A YAML file
//  3. Environment variables
//  4. Explicit maps, such as command-line flags
//
// Environment variables carry a prefix and use a double underscore
// between levels, so TOKTABLES_TABLES__SESSION_TIMEOUT sets
// tables.session_timeout.
//
// Watcher reports changes to a loaded file so callers can Reload.
package confloader
