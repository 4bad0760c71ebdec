package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

var (
	errEmptyResponse = errors.New("empty response")
	errUnparseable   = errors.New("no parseable classification object")
)

// Field names accepted for each classification field, in lookup order.
var (
	summaryKeys  = []string{"summary"}
	priorityKeys = []string{"priority"}
	notesKeys    = []string{"notes", "helpfulNotes", "helpful_notes"}
	skillsKeys   = []string{"skills", "relatedSkills", "related_skills", "requiredSkills", "required_skills"}
	wrapperKeys  = []string{"classification", "ticket", "result", "analysis"}
)

// ParseClassification extracts a classification object from raw model output.
//
// The text is first parsed as JSON directly (after removing markdown fences).
// If that fails, the largest brace-delimited span is parsed instead, which
// tolerates commentary around the object. Field name variants and a single
// level of wrapping are accepted.
func ParseClassification(text string) (*domain.ClassificationResult, error) {
	trimmed := stripFences(strings.TrimSpace(text))
	if trimmed == "" {
		return nil, errEmptyResponse
	}

	if result, err := decodeClassification(trimmed); err == nil {
		return result, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no object found", errUnparseable)
	}

	result, err := decodeClassification(trimmed[start : end+1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnparseable, err)
	}
	return result, nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func decodeClassification(s string) (*domain.ClassificationResult, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}

	if !hasAnyKey(obj, summaryKeys, priorityKeys, notesKeys, skillsKeys) {
		inner, ok := unwrap(obj)
		if !ok {
			return nil, errors.New("object has no classification fields")
		}
		obj = inner
	}

	return &domain.ClassificationResult{
		Summary:  stringField(obj, summaryKeys),
		Priority: stringField(obj, priorityKeys),
		Notes:    stringField(obj, notesKeys),
		Skills:   skillsField(obj, skillsKeys),
	}, nil
}

func unwrap(obj map[string]json.RawMessage) (map[string]json.RawMessage, bool) {
	for _, key := range wrapperKeys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err != nil {
			continue
		}
		if hasAnyKey(inner, summaryKeys, priorityKeys, notesKeys, skillsKeys) {
			return inner, true
		}
	}
	return nil, false
}

func hasAnyKey(obj map[string]json.RawMessage, keySets ...[]string) bool {
	for _, keys := range keySets {
		for _, k := range keys {
			if _, ok := obj[k]; ok {
				return true
			}
		}
	}
	return false
}

// stringField returns the first key holding a string. A list of strings is joined by newlines.
func stringField(obj map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			return strings.Join(list, "\n")
		}
	}
	return ""
}

// skillsField accepts a list (non-string entries are skipped) or a comma-separated string.
// Any other shape yields nil.
func skillsField(obj map[string]json.RawMessage, keys []string) []string {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var items []any
		if err := json.Unmarshal(raw, &items); err == nil {
			skills := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok {
					skills = append(skills, s)
				}
			}
			return skills
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.Split(s, ",")
		}
	}
	return nil
}
