package correction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"scribe/internal/services/llm"
	"scribe/internal/transcript"
)

var errNoParagraphs = errors.New("response carries no paragraphs")

type paragraphPayload struct {
	Start     float64           `json:"start"`
	Text      string            `json:"text"`
	Sentences []sentencePayload `json:"sentences"`
}

type sentencePayload struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// ParseParagraphs decodes a correction response. The paragraphs may sit under
// "paragraphs", under the first list-valued field of an object, or at the top
// level as a bare list. Paragraphs without text are dropped.
func ParseParagraphs(content string) ([]transcript.Paragraph, error) {
	var raw json.RawMessage
	if err := llm.DecodeJSON(content, &raw); err != nil {
		return nil, err
	}
	list, err := paragraphList(raw)
	if err != nil {
		return nil, err
	}
	var payload []paragraphPayload
	if err := json.Unmarshal(list, &payload); err != nil {
		return nil, fmt.Errorf("decode paragraphs: %w", err)
	}
	paragraphs := make([]transcript.Paragraph, 0, len(payload))
	for _, p := range payload {
		text := strings.TrimSpace(p.Text)
		if text == "" && len(p.Sentences) == 0 {
			continue
		}
		paragraph := transcript.Paragraph{Start: p.Start, Text: text}
		for _, s := range p.Sentences {
			if st := strings.TrimSpace(s.Text); st != "" {
				paragraph.Sentences = append(paragraph.Sentences, transcript.Sentence{Start: s.Start, Text: st})
			}
		}
		if paragraph.Text == "" {
			parts := make([]string, 0, len(paragraph.Sentences))
			for _, s := range paragraph.Sentences {
				parts = append(parts, s.Text)
			}
			paragraph.Text = strings.Join(parts, " ")
		}
		if len(paragraph.Sentences) == 0 {
			paragraph.Sentences = []transcript.Sentence{{Start: paragraph.Start, Text: paragraph.Text}}
		}
		paragraphs = append(paragraphs, paragraph)
	}
	if len(paragraphs) == 0 {
		return nil, errNoParagraphs
	}
	return paragraphs, nil
}

func paragraphList(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errNoParagraphs
	}
	switch trimmed[0] {
	case '[':
		return trimmed, nil
	case '{':
	default:
		return nil, fmt.Errorf("unexpected response shape %q", string(trimmed[:1]))
	}

	var named struct {
		Paragraphs json.RawMessage `json:"paragraphs"`
	}
	if err := json.Unmarshal(trimmed, &named); err == nil && isList(named.Paragraphs) {
		return named.Paragraphs, nil
	}

	// Object key order is not preserved by map decoding, so walk tokens.
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if isList(value) {
			return value, nil
		}
	}
	return nil, errNoParagraphs
}

func isList(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
