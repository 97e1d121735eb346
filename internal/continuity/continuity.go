// Package continuity builds a bounded rolling summary from prior section
// summaries and maintains the key/value continuity ledger that carries
// narrative facts forward across the section loop.
package continuity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ayy-em/storyforge/internal/model"
)

const (
	tokensPerWord = 1.33

	// MinTokens and MaxTokens are the rolling-summary token-budget floor and
	// ceiling. spec.md §4.7 names these as configurable defaults.
	MinTokens = 400
	MaxTokens = 900
)

func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(float64(words) * tokensPerWord)
}

// BuildRollingSummary walks summaries from newest to oldest, accumulating
// until the token estimate falls between targetMinTokens and MaxTokens (it
// may legitimately select zero summaries if the newest alone exceeds the
// ceiling). Selected summaries are emitted in chronological order, each
// prefixed "Section NN: ". Empty input yields the literal placeholder.
func BuildRollingSummary(summaries []model.SummaryRecord, targetMinTokens int) string {
	if len(summaries) == 0 {
		return "No previous sections."
	}

	var selected []model.SummaryRecord
	total := 0
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		tokens := estimateTokens(s.Summary)
		if total+tokens > MaxTokens {
			break
		}
		selected = append([]model.SummaryRecord{s}, selected...)
		total += tokens
		if total >= targetMinTokens && len(selected) >= 2 {
			break
		}
	}

	if len(selected) == 0 {
		return "No previous sections."
	}

	parts := make([]string, 0, len(selected))
	for _, s := range selected {
		parts = append(parts, fmt.Sprintf("Section %02d: %s", s.SectionID, s.Summary))
	}
	return strings.Join(parts, "\n\n")
}

// MergeContinuityUpdates returns a new ledger with updates merged over
// ledger: keys present in both resolve to the updates value (last write
// wins). The input ledger is never mutated.
func MergeContinuityUpdates(ledger, updates map[string]string) map[string]string {
	merged := make(map[string]string, len(ledger)+len(updates))
	for k, v := range ledger {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}

// GetContinuityContext formats the ledger as a bullet list sorted by key.
// An empty ledger yields a placeholder.
func GetContinuityContext(ledger map[string]string) string {
	if len(ledger) == 0 {
		return "No continuity information available."
	}
	keys := make([]string, 0, len(ledger))
	for k := range ledger {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("- %s: %s", k, ledger[k]))
	}
	return strings.Join(parts, "\n")
}
