// Package language normalizes the configured transcription language.
//
// Recognizers take ISO 639-1 codes; operators tend to write "english" or
// "zho". ToISO2 maps every recognized form to the two-letter code and
// DisplayName yields the name the correction prompt shows the model.
package language
