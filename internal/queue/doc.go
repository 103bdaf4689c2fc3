// Package queue persists transcription tasks in SQLite and implements the
// Task Store contract used by the scheduler, the worker, and the maintenance
// commands.
//
// Claiming is a single UPDATE ... RETURNING statement: the row moves from
// queued to processing in the same step that selects it, which is the only
// exclusion the single scheduler needs. Manual tasks are always claimed before
// tracker tasks; within a class the oldest created_at wins and the task id
// breaks ties.
//
// Timestamps are stored as fixed-width UTC strings so lexical comparison in
// SQL matches chronological order. Schema changes bump schemaVersion; the
// database is transient and is cleared to adopt a new schema.
package queue
