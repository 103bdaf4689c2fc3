// Package whisperx runs the WhisperX command-line recognizer through uvx and
// converts its JSON output into transcript segments.
//
// One Service is constructed per model: the worker registers the primary
// model plus the lighter fallback and escalation models used by repair.
package whisperx
