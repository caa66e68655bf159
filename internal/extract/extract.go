// Package extract pulls structured records out of noisy completion or
// markdown text.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Stages reported by Error.
const (
	StageSpan   = "span"
	StageDecode = "decode"
	StageSchema = "schema"
	StagePrompt = "prompt"
)

// Error is an extraction failure. Raw keeps the offending text for diagnosis.
type Error struct {
	Stage string
	Raw   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var fenceRe = regexp.MustCompile("(?m)^[ \t]*```[a-zA-Z0-9_-]*[ \t]*$")

// StripFences removes markdown code fence lines (``` and ```json)
// and any inline fence markers left around the payload.
func StripFences(text string) string {
	out := fenceRe.ReplaceAllString(text, "")
	out = strings.ReplaceAll(out, "```json", "")
	out = strings.ReplaceAll(out, "```", "")
	return strings.TrimSpace(out)
}

// JSONSpan returns the outermost JSON object or array in text: from the first
// '{' or '[' (whichever comes first) to the last matching closer.
func JSONSpan(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Decode strips fences, locates the JSON span and unmarshals it into v.
func Decode(text string, v any) error {
	cleaned := StripFences(text)
	span, ok := JSONSpan(cleaned)
	if !ok {
		return &Error{Stage: StageSpan, Raw: text, Err: fmt.Errorf("no JSON object or array found")}
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return &Error{Stage: StageDecode, Raw: text, Err: err}
	}
	return nil
}
