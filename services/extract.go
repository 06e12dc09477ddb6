package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"stylistapi/models"
)

type ExtractionErrorKind string

const (
	ExtractionErrNoJSONFound       ExtractionErrorKind = "no_json_found"
	ExtractionErrMalformedJSON     ExtractionErrorKind = "malformed_json"
	ExtractionErrNoCandidatesFound ExtractionErrorKind = "no_candidates_found"
)

type ExtractionError struct {
	Kind    ExtractionErrorKind
	Message string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error [%s]: %s", e.Kind, e.Message)
}

func NewExtractionError(kind ExtractionErrorKind, message string) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message}
}

// cleanAIResponseText strips the markdown code fences models like to wrap
// JSON payloads in.
func cleanAIResponseText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ExtractOutfitCandidates locates the outfit JSON payload inside a complete
// response blob, skipping any free-text preamble. A JSON array yields its
// elements in order; a bare object is treated as a one-element array.
func ExtractOutfitCandidates(text string) ([]models.OutfitCandidate, error) {
	cleaned := cleanAIResponseText(text)

	span, isArray := locateJSONSpan(cleaned)
	if span == "" {
		return nil, NewExtractionError(ExtractionErrNoJSONFound, "no JSON payload in response")
	}

	if isArray {
		var candidates []models.OutfitCandidate
		if err := json.Unmarshal([]byte(span), &candidates); err != nil {
			return nil, NewExtractionError(ExtractionErrMalformedJSON, err.Error())
		}
		for i := range candidates {
			candidates[i].SectionIndex = i + 1
		}
		return candidates, nil
	}

	var single models.OutfitCandidate
	if err := json.Unmarshal([]byte(span), &single); err != nil {
		return nil, NewExtractionError(ExtractionErrMalformedJSON, err.Error())
	}
	single.SectionIndex = 1
	return []models.OutfitCandidate{single}, nil
}

// locateJSONSpan returns the first balanced top-level JSON array or object in
// the text. Brackets and braces inside string literals do not count toward
// depth, and backslash escapes inside strings are honored.
func locateJSONSpan(text string) (span string, isArray bool) {
	start := -1
	var open, close byte
	for i := 0; i < len(text); i++ {
		if text[i] == '[' {
			start, open, close, isArray = i, '[', ']', true
			break
		}
		if text[i] == '{' {
			start, open, close, isArray = i, '{', '}', false
			break
		}
	}
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], isArray
			}
		}
	}
	// Unbalanced payload; let the caller report it as malformed.
	return text[start:], isArray
}
