// Package llm provides an OpenAI-compatible chat client used for transcript
// correction and summaries.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON content plus
// the provider's token usage.
// Client.HealthCheck: verify API key and model availability.
// DecodeJSON: tolerate code fences and prose around the JSON payload.
//
// # Retry Behaviour
//
// HTTP 408/429/5xx responses, empty content, and network timeouts are retried
// with exponential backoff (1s doubling to 10s, three attempts by default).
// Retry-After is honoured when present. Context cancellation stops at once.
//
// Callers treat any returned error as "backend unavailable" and degrade
// locally; the correction stage falls back to time-window grouping.
package llm
