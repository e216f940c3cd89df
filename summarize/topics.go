// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package summarize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseTopics extracts topic names from a model response. It never fails:
// the whole response is tried as a JSON array first, then the outermost
// [...] substring (after repair), and finally the response is split into
// lines. Blank topics are dropped and at most MaxTopics are returned.
func ParseTopics(text string) []string {
	text = stripCodeFences(text)

	topics, ok := parseArray(text)
	if !ok {
		if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
			topics, ok = parseArray(repairJSON(text[start : end+1]))
		}
	}
	if !ok {
		topics = splitLines(text)
	}

	out := make([]string, 0, MaxTopics)
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == MaxTopics {
			break
		}
	}
	return out
}

// parseArray decodes s as a JSON array. Non-string elements are stringified.
func parseArray(s string) ([]string, bool) {
	var raw []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case nil:
		case string:
			out = append(out, t)
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out, true
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•[ ")
		line = trimListNumber(line)
		line = strings.Trim(line, "\"',[] \t")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// trimListNumber removes a leading "1." or "2)" marker.
func trimListNumber(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// stripCodeFences removes a surrounding markdown code fence, if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// repairJSON attempts to fix common formatting issues in JSON arrays from LLM responses.
// It converts single- and curly-quoted strings to double-quoted ones and drops
// trailing commas before a closing bracket.
func repairJSON(s string) string {
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+8)

	inString := false
	var quote rune
	for i := 0; i < len(result); i++ {
		ch := result[i]

		if inString {
			switch {
			case ch == '\\' && i+1 < len(result):
				fixed = append(fixed, ch, result[i+1])
				i++
			case ch == quote || (quote == '“' && ch == '”'):
				fixed = append(fixed, '"')
				inString = false
			case ch == '"':
				// A double quote inside a single-quoted string must be escaped.
				fixed = append(fixed, '\\', '"')
			default:
				fixed = append(fixed, ch)
			}
			continue
		}

		switch ch {
		case '"', '\'', '“':
			inString = true
			quote = ch
			fixed = append(fixed, '"')
		case ']', '}':
			// Drop a trailing comma (and whitespace) before the closer.
			j := len(fixed) - 1
			for j >= 0 && (fixed[j] == ' ' || fixed[j] == '\n' || fixed[j] == '\t' || fixed[j] == '\r') {
				j--
			}
			if j >= 0 && fixed[j] == ',' {
				fixed = append(fixed[:j], fixed[j+1:]...)
			}
			fixed = append(fixed, ch)
		default:
			fixed = append(fixed, ch)
		}
	}

	return string(fixed)
}
