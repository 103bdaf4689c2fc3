// Package textutil turns free-form identifiers (task ids, source ids, model
// names) into filesystem-safe tokens for cache keys and log file names.
package textutil
