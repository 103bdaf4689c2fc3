// Package results is the filesystem Result Sink. Each task owns three files in
// the results directory: <id>.json (final report), <id>_status.json (progress
// snapshot), and <id>_error.json (failure diagnostic). All writes are atomic
// renames so the API layer never reads a partial document.
package results
