// Package summary derives the report summary, keywords, and usage costs.
//
// Summarizer asks the chat completion backend for a short summary and keyword
// list; failures leave both empty rather than failing the task. ComputeUsage
// prices the cloud transcription minutes and the tokens consumed by correction
// and summarization.
package summary
