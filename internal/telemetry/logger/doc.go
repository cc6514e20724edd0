// Package logger is the structured logging layer of tokentables.
//
// Every component receives a Logger. The implementation sits on log/slog
// with a JSON or text handler. All loggers built by New share one level,
// which SetLevel changes at runtime on configuration reload.
//
// Session tokens are bearer secrets and are masked in every record, as
// are values logged under secret-bearing keys. Transition tokens are
// identifiers and stay readable.
package logger
