// Package repair detects defective regions of a recognized transcript and
// re-transcribes them with alternate backends.
//
// A round runs the hallucination detector and the gap/density detector over
// every segment, merges flagged indices into ranges with context expansion,
// pads each range into an audio window, and sends the window to a backend
// chosen from the range's tags. Results are appended to each covered
// segment's alternatives; original text is never replaced. A failed window
// marks its segments unresolved and the round moves on.
package repair
