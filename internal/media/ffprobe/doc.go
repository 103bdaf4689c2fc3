// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Primary entry point:
//   - Inspect: executes ffprobe (or an injected Runner) and returns parsed Result
//
// Result.DurationSeconds supplies the media bounds the repair engine clips
// audio windows to.
package ffprobe
