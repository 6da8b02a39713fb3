package exam

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAnswers validates a raw answers payload. The payload must be a JSON
// object keyed by question identifier (a stable id or a zero-based position).
// Null values are dropped; values that are not an integral option index are
// kept as malformed selections so the rest of the submission still scores.
func ParseAnswers(raw []byte) (Answers, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: answers must be an object", ErrInvalidInput)
	}
	var m map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: answers: %v", ErrInvalidInput, err)
	}
	return answersFromMap(m)
}

func answersFromMap(m map[string]json.RawMessage) (Answers, error) {
	out := make(Answers, len(m))
	seen := make(map[string]bool, len(m))
	for k, v := range m {
		key := strings.TrimSpace(k)
		if key == "" {
			return nil, fmt.Errorf("%w: answer with empty question id", ErrInvalidInput)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrInvalidInput, key)
		}
		seen[key] = true
		sel, answered := parseSelection(v)
		if !answered {
			continue
		}
		out[key] = sel
	}
	return out, nil
}

func parseSelection(v json.RawMessage) (Selection, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return Selection{}, false
	}
	var x interface{}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return Selection{Malformed: true}, true
	}
	switch t := x.(type) {
	case json.Number:
		if i, ok := integral(t.String()); ok {
			return Selection{Index: i}, true
		}
	case string:
		if i, ok := integral(strings.TrimSpace(t)); ok {
			return Selection{Index: i}, true
		}
	}
	return Selection{Malformed: true}, true
}

func integral(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
