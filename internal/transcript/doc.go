// Package transcript defines the time-aligned transcript model shared by the
// recognition backends, the quality-repair engine, and the correction stage.
package transcript
