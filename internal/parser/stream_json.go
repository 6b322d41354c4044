// Package parser extracts text and token usage from the agent CLI's
// stream-json output. Each line is one JSON event; malformed lines are
// silently skipped.
package parser

import (
	"encoding/json"
	"strings"
)

// Usage is the token consumption reported by a stream of CLI events.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// ParseStreamText extracts the human-readable text from stream-json
// output.
//
// Supported event types:
//   - type:assistant → text from message.content[] where type="text"
//   - type:result → the result field, as a fallback
//
// Tool-use content items are skipped; they carry no prose.
func ParseStreamText(input string) string {
	var out strings.Builder
	forEachEvent(input, func(event map[string]interface{}) {
		switch event["type"] {
		case "assistant":
			appendAssistantText(event, &out)
		case "result":
			if s, ok := event["result"].(string); ok && s != "" {
				out.WriteString(s)
			}
		}
	})
	return out.String()
}

// ExtractUsage sums the token usage reported across all events. The
// result event's usage block is authoritative when present; assistant
// events contribute only when no result event carried usage.
func ExtractUsage(input string) Usage {
	var fromResult, fromAssistant Usage
	sawResult := false

	forEachEvent(input, func(event map[string]interface{}) {
		usage, ok := event["usage"].(map[string]interface{})
		if !ok {
			if msg, ok := event["message"].(map[string]interface{}); ok {
				usage, _ = msg["usage"].(map[string]interface{})
			}
		}
		if usage == nil {
			return
		}

		in := asInt64(usage["input_tokens"])
		out := asInt64(usage["output_tokens"])

		if event["type"] == "result" {
			sawResult = true
			fromResult.InputTokens += in
			fromResult.OutputTokens += out
		} else {
			fromAssistant.InputTokens += in
			fromAssistant.OutputTokens += out
		}
	})

	if sawResult {
		return fromResult
	}
	return fromAssistant
}

// forEachEvent parses input line by line, invoking fn for every
// well-formed JSON object that carries a string type field.
func forEachEvent(input string, fn func(map[string]interface{})) {
	if input == "" {
		return
	}
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var event map[string]interface{}
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}
		if _, ok := event["type"].(string); !ok {
			continue
		}
		fn(event)
	}
}

func appendAssistantText(event map[string]interface{}, out *strings.Builder) {
	message, ok := event["message"].(map[string]interface{})
	if !ok {
		return
	}
	content, ok := message["content"].([]interface{})
	if !ok {
		return
	}
	for _, item := range content {
		ci, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if ci["type"] != "text" {
			continue
		}
		if text, ok := ci["text"].(string); ok && text != "" {
			out.WriteString(text)
		}
	}
}

// asInt64 coerces the JSON number shapes usage fields arrive in.
func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
