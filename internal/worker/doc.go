// Package worker executes one task end to end inside its own process.
//
// Runner.Run walks the fixed pipeline: acquire media, transcribe, repair,
// correct, summarize, persist. The transcription, repair, and correction
// outputs are checkpointed under (source_id, mode, backend) so a retried task
// resumes past completed stages. Progress snapshots and the final report go to
// the Result Sink. Any failure, including a recovered panic, is written as a
// traced diagnostic to both the sink and the Task Store before Run returns so
// the scheduler never has to synthesize one.
//
// NewFromConfig builds the backend registry and every stage collaborator once
// at process start; nothing is held in package-level state.
package worker
