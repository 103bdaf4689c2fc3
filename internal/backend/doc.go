// Package backend defines the closed set of speech recognition backends and
// the registry the worker builds once at process start. Pipeline stages and
// the repair engine look backends up by Kind, never by free-form name.
package backend
