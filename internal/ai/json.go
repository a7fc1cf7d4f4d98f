package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")

// ExtractJSONArray returns the first JSON array found in a model reply. Both
// fenced (```json ... ```) and bare arrays are accepted.
func ExtractJSONArray(s string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(s); len(m) == 2 {
		if out, ok := findFirstArray(m[1]); ok {
			return out, true
		}
	}
	return findFirstArray(stripCodeFences(s))
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// findFirstArray returns the first balanced [...] block that is valid JSON
// and holds objects (or nothing). Bracketed prose such as "[Note]" is skipped.
func findFirstArray(s string) (string, bool) {
	for off := 0; off < len(s); {
		i := strings.IndexByte(s[off:], '[')
		if i < 0 {
			return "", false
		}
		start := off + i
		if end, ok := balancedEnd(s, start); ok {
			cand := s[start:end]
			inner := strings.TrimSpace(cand[1 : len(cand)-1])
			if (inner == "" || inner[0] == '{') && json.Valid([]byte(cand)) {
				return cand, true
			}
		}
		off = start + 1
	}
	return "", false
}

// balancedEnd returns the index just past the bracket closing s[start],
// ignoring brackets inside JSON strings.
func balancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
