// Package worker provides the built-in workers for question answering over
// relational data: a lead that routes requests, a schema expert, a SQL
// generator/executor and a reference retriever. Each worker does exactly one
// job and transfers control by handoff when another capability is needed.
package worker

import (
	"encoding/json"
	"strings"
)

// decision is the structured verdict a model-driven worker asks its model
// for. Free text around the JSON object is tolerated; only the first
// top-level object is parsed.
type decision struct {
	Action   string            `json:"action"` // "handoff", "complete" or "fail"
	Target   string            `json:"target,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Answer   string            `json:"answer,omitempty"`
	Findings map[string]string `json:"findings,omitempty"`
}

// parseDecision extracts a decision from model output. Models wrap JSON in
// prose or code fences often enough that we scan for the first balanced
// object instead of unmarshalling the whole reply.
func parseDecision(text string) (decision, bool) {
	raw, ok := firstJSONObject(text)
	if !ok {
		return decision{}, false
	}
	var d decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return decision{}, false
	}
	switch d.Action {
	case "handoff", "complete", "fail":
		return d, true
	}
	return decision{}, false
}

// firstJSONObject returns the first balanced {...} span in text, respecting
// strings and escapes.
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
