// Package checkpoint persists per-stage worker output so a retried task
// resumes past completed stages.
//
// Entries are JSON files under the cache directory named
// <source_id>_<mode>_<backend>_<stage>.json. Writes are atomic; there is no
// cross-process locking because only one worker runs a given task at a time.
// Unreadable entries are logged and treated as misses.
package checkpoint
