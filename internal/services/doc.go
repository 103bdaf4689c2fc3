// Package services defines shared utilities consumed by the worker stages,
// the scheduler, and the external backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp task ids, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper. The markers encode the
//     failure taxonomy: primary transcription failures are task-fatal, repair
//     and correction failures are absorbed at segment or chunk scope.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
