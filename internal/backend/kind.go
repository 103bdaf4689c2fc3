package backend

import "strings"

// Kind enumerates the transcription backends the pipeline can call.
type Kind int

const (
	// KindWhisperX is the primary local recognizer with the configured model.
	KindWhisperX Kind = iota
	// KindWhisperBase is the lighter local fallback for hallucination repair.
	KindWhisperBase
	// KindWhisperSmall is the escalation model used on later repair rounds.
	KindWhisperSmall
	// KindSenseVoice recovers continuous speech across gaps and sparse regions.
	KindSenseVoice
	// KindCloud is the hosted speech-to-text service.
	KindCloud
)

var kindNames = map[Kind]string{
	KindWhisperX:     "whisperx",
	KindWhisperBase:  "whisper_base",
	KindWhisperSmall: "whisper_small",
	KindSenseVoice:   "sensevoice",
	KindCloud:        "cloud",
}

// String returns the stable name recorded on alternative candidates.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind converts a stable name back into a Kind.
func ParseKind(value string) (Kind, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for kind, name := range kindNames {
		if name == normalized {
			return kind, true
		}
	}
	return 0, false
}

// AllKinds returns every backend kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindWhisperX, KindWhisperBase, KindWhisperSmall, KindSenseVoice, KindCloud}
}
