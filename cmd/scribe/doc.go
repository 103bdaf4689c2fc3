// Package main hosts the scribe CLI entrypoint and command graph.
//
// One binary plays every role: "scribe scheduler run" is the long-lived claim
// loop, "scribe worker" is the isolated per-task process it spawns, and the
// queue, config and check commands are operator tooling that talk to the
// SQLite task store and result directory directly. Heavy lifting lives in the
// internal packages; commands here only resolve configuration, wire
// dependencies and render output.
package main
