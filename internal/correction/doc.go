// Package correction turns a repaired transcript into corrected paragraphs.
//
// Processor splits segments into fixed-size chunks and sends each chunk to a
// Corrector together with the trailing characters of the previous chunk's
// corrected output, so names and terminology stay consistent across chunk
// boundaries. A chunk whose correction fails or cannot be parsed falls back to
// GroupByTime; one bad chunk never fails the task.
//
// LLMCorrector is the chat-completion backed Corrector. It accepts
// {"paragraphs":[...]}, any object whose first list-valued field holds the
// paragraphs, or a bare list.
package correction
