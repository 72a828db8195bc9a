// Package jsonextract recovers a JSON object from free-form model output.
package jsonextract

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNoJSON is returned when no parseable JSON value can be found.
	ErrNoJSON = errors.New("no JSON object found")

	// ErrNotObject is returned by ExtractObject when the recovered value is not an object.
	ErrNotObject = errors.New("JSON value is not an object")
)

// Extract returns the JSON value embedded in text.
//
// The whole text is tried first. Otherwise the text is cut at the first '{' and
// every end position is tried from the end of the string backward, so the longest
// parseable prefix starting at that brace wins. Prose before the brace and noise or
// markdown fences after the object are tolerated.
func Extract(text string) (any, error) {
	if v, ok := decode(text); ok {
		return v, nil
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, ErrNoJSON
	}

	for end := len(text); end > start+1; end-- {
		// Only a closing brace can end an object.
		if text[end-1] != '}' {
			continue
		}
		if v, ok := decode(text[start:end]); ok {
			return v, nil
		}
	}

	return nil, ErrNoJSON
}

// ExtractObject is Extract restricted to JSON objects.
func ExtractObject(text string) (map[string]any, error) {
	v, err := Extract(text)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// decode parses s as exactly one JSON value with numbers kept as json.Number.
func decode(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// Trailing data means s was not a single value.
	if strings.TrimSpace(s[dec.InputOffset():]) != "" {
		return nil, false
	}
	return v, true
}
