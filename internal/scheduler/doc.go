// Package scheduler owns the long-lived claim loop.
//
// It claims queued tasks in priority order, hands each one to an isolated
// worker process through a Launcher, and observes the result purely through
// the exit code, the Task Store and the Result Sink. Dispatch is bounded by a
// slot semaphore sized from [scheduler] worker_slots (one by default). A
// separate reaper ticker force-fails tasks that stayed processing or queued
// past their configured age. Only one scheduler may run per log directory;
// Lock enforces that with a file lock.
package scheduler
