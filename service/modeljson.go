package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// modelJSON returns the first JSON value in a model answer. Answers may come
// inside a ```json fence or with prose around them.
func modelJSON(answer string) (json.RawMessage, error) {
	body := unfence(answer)
	if body == "" {
		return nil, errors.New("empty answer")
	}
	for i := 0; i < len(body); i++ {
		if body[i] != '{' && body[i] != '[' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(body[i:])).Decode(&raw); err == nil {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("no JSON value in answer: %s", clip(body))
}

// decodeModelObject decodes the JSON object of answer into target.
func decodeModelObject(answer string, target any) error {
	raw, err := modelJSON(answer)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode answer: %w (answer: %s)", err, clip(string(raw)))
	}
	return nil
}

// decodeModelList accepts a bare array or an object holding the array under
// field.
func decodeModelList[T any](answer, field string) ([]T, error) {
	raw, err := modelJSON(answer)
	if err != nil {
		return nil, err
	}
	if raw[0] != '[' {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
		inner, ok := wrapper[field]
		if !ok {
			return nil, fmt.Errorf("answer has no %q list: %s", field, clip(string(raw)))
		}
		raw = inner
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return out, nil
}

func unfence(answer string) string {
	s := strings.TrimSpace(answer)
	rest, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	rest, _, _ = strings.Cut(rest, "```")
	return strings.TrimSpace(rest)
}

// clip shortens s for error messages.
func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "<empty>"
	}
	if r := []rune(s); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
