// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths scribe depends on.
//
// "scribe check" renders every result as a table. The scheduler runs the
// same checks once at startup and logs failures as warnings; a missing
// optional tool only degrades repair, while a missing required one makes
// every worker fail.
package preflight
