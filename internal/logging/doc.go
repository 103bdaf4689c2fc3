// Package logging assembles structured slog loggers and formatting helpers used
// by the scheduler, the worker, and the CLI.
//
// It owns the console and JSON handlers, routes output to stdout/stderr and
// log files, and exposes context-aware helpers so pipeline code automatically
// tags lines with task ids, stages, and correlation ids. Worker processes log
// to stderr so the scheduler can capture the tail of a crashed run.
package logging
