package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// reNameObject rescues free-standing relationship objects from a response
// that never formed an array.
var reNameObject = regexp.MustCompile(`\{[^{}]*"name"[^{}]*\}`)

// decodeRelationshipArray turns a model response into relationships,
// tolerating the usual ways a model mangles JSON: markdown fences, prose
// around the array, unbalanced brackets, and lenient syntax. The second
// return is false when nothing decodable remains.
func decodeRelationshipArray(raw string) ([]Relationship, bool) {
	text := stripCodeFence(strings.TrimSpace(raw))

	if rels, ok := tryDecode(text); ok {
		return rels, true
	}

	if sliced := sliceArray(text); sliced != "" {
		if rels, ok := tryDecode(sliced); ok {
			return rels, true
		}
		if repaired, err := jsonrepair.RepairJSON(sliced); err == nil {
			if rels, ok := tryDecode(repaired); ok {
				return rels, true
			}
		}
	}

	// Hjson accepts unquoted keys, missing commas, and comments.
	var loose []Relationship
	if err := hjson.Unmarshal([]byte(text), &loose); err == nil && len(loose) > 0 {
		return loose, true
	}

	if rels := rescueObjects(text); len(rels) > 0 {
		return rels, true
	}
	return nil, false
}

func tryDecode(text string) ([]Relationship, bool) {
	var rels []Relationship
	if err := json.Unmarshal([]byte(text), &rels); err == nil {
		return rels, true
	}
	return nil, false
}

// stripCodeFence unwraps the first markdown code block, preferring a
// ```json fence over a bare one.
func stripCodeFence(text string) string {
	for _, fence := range []string{"```json", "```"} {
		idx := strings.Index(text, fence)
		if idx < 0 {
			continue
		}
		rest := text[idx+len(fence):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return text
}

// sliceArray cuts the response down to its outermost array, closing
// brackets the model left open.
func sliceArray(text string) string {
	start := strings.Index(text, "[")
	if start < 0 {
		return ""
	}
	sliced := text[start:]
	if end := strings.LastIndex(sliced, "]"); end >= 0 {
		sliced = sliced[:end+1]
	}
	if open := strings.Count(sliced, "[") - strings.Count(sliced, "]"); open > 0 {
		sliced += strings.Repeat("]", open)
	}
	return sliced
}

func rescueObjects(text string) []Relationship {
	var rels []Relationship
	for _, raw := range reNameObject.FindAllString(text, -1) {
		var rel Relationship
		if err := json.Unmarshal([]byte(raw), &rel); err == nil {
			rels = append(rels, rel)
		}
	}
	return rels
}
