// Package jsonrecover extracts a JSON object from an LLM text response that
// may not be pure JSON: it may be wrapped in a markdown code fence, padded
// with surrounding prose, or contain unescaped quotes inside string values.
// Extraction proceeds through bounded tiers, from strictest to most lenient,
// and reports which tier succeeded so a caller can log when repair was
// needed.
package jsonrecover

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Tier identifies which extraction strategy produced a result.
type Tier int

const (
	// TierDirect means content parsed as JSON with no modification.
	TierDirect Tier = iota
	// TierFencedBlock means JSON was extracted from a ```json fenced block.
	TierFencedBlock
	// TierFencedBlockRepaired means the fenced block needed quote repair.
	TierFencedBlockRepaired
	// TierBraceSlice means JSON was extracted by slicing from the first '{'
	// to the last '}' in the content.
	TierBraceSlice
	// TierBraceSliceRepaired means the brace-sliced candidate needed quote
	// repair.
	TierBraceSliceRepaired
	// TierFullRepair means the entire content needed quote repair.
	TierFullRepair
)

// Repaired reports whether t required the quote-escaping repair pass.
func (t Tier) Repaired() bool {
	return t == TierFencedBlockRepaired || t == TierBraceSliceRepaired || t == TierFullRepair
}

// Error is raised when no tier can produce valid JSON from content.
type Error struct {
	Snippet string
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrecover: could not extract valid JSON from response (first 500 chars): %q", e.Snippet)
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

// Extract parses content into v (a pointer, as for json.Unmarshal), trying
// each tier in turn, and returns which tier succeeded.
func Extract(content string, v any) (Tier, error) {
	if err := json.Unmarshal([]byte(content), v); err == nil {
		return TierDirect, nil
	}

	if m := fencedBlockRe.FindStringSubmatch(content); m != nil {
		candidate := m[1]
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return TierFencedBlock, nil
		}
		repaired := repairQuotes(candidate)
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return TierFencedBlockRepaired, nil
		}
	}

	first := strings.IndexByte(content, '{')
	last := strings.LastIndexByte(content, '}')
	if first != -1 && last != -1 && last > first {
		candidate := content[first : last+1]
		if err := json.Unmarshal([]byte(candidate), v); err == nil {
			return TierBraceSlice, nil
		}
		repaired := repairQuotes(candidate)
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return TierBraceSliceRepaired, nil
		}
	}

	repaired := repairQuotes(content)
	if err := json.Unmarshal([]byte(repaired), v); err == nil {
		return TierFullRepair, nil
	}

	snippet := content
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}
	return 0, &Error{Snippet: snippet}
}

// repairQuotes escapes quote characters found inside string content that are
// not already escaped and are not closing quotes, identified by scanning
// forward past whitespace for a following JSON structural character
// (':', ',', '}', ']'). This is a heuristic, not a JSON parser: it recovers
// the common case of an LLM emitting a literal '"' inside dialogue.
func repairQuotes(s string) string {
	var out strings.Builder
	inString := false
	n := len(s)

	for i := 0; i < n; i++ {
		c := s[i]

		if c == '\\' && inString {
			if i+1 < n {
				next := s[i+1]
				out.WriteByte(c)
				out.WriteByte(next)
				i++
				continue
			}
			out.WriteByte(c)
			continue
		}

		if c == '"' {
			if inString {
				j := i + 1
				for j < n && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
					j++
				}
				if j < n {
					switch s[j] {
					case ':', ',', '}', ']':
						inString = false
						out.WriteByte(c)
						continue
					}
				}
				out.WriteByte('\\')
				out.WriteByte(c)
				continue
			}
			inString = true
			out.WriteByte(c)
			continue
		}

		out.WriteByte(c)
	}

	return out.String()
}
