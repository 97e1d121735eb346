// Package stage implements the text-generation stages of the pipeline:
// outline, per-beat section and summarize, and the final critic pass. Each
// stage composes the context loader, prompt renderer, schema validator,
// continuity engine, JSON recovery, state store, and a text generator behind
// the bounded retry policy.
package stage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ayy-em/storyforge/internal/contextload"
	"github.com/ayy-em/storyforge/internal/model"
)

// promptContextVars projects a context selection into the four prompt
// variables every stage template shares: lore_bible, style_rules, location_context,
// character_context.
func promptContextVars(sel *contextload.Selection) map[string]string {
	lore := sel.AlwaysLoaded["lore_bible.md"]
	if len(sel.WorldFiles) > 0 {
		lore = foldWorld(lore, sel.WorldFiles)
	}

	var styleNames []string
	for name := range sel.AlwaysLoaded {
		if strings.HasPrefix(name, "style/") {
			styleNames = append(styleNames, name)
		}
	}
	sort.Strings(styleNames)
	var styleParts []string
	for _, name := range styleNames {
		stem := strings.TrimSuffix(strings.TrimPrefix(name, "style/"), ".md")
		styleParts = append(styleParts, fmt.Sprintf("## %s\n\n%s", stem, sel.AlwaysLoaded[name]))
	}

	location := ""
	if sel.LocationContent != nil {
		location = *sel.LocationContent
	}

	var characterParts []string
	for _, name := range sel.SelectedCharacters {
		stem := strings.TrimSuffix(strings.TrimPrefix(name, "characters/"), ".md")
		characterParts = append(characterParts, fmt.Sprintf("## %s\n\n%s", stem, sel.CharacterContents[name]))
	}

	return map[string]string{
		"lore_bible":        lore,
		"style_rules":       strings.Join(styleParts, "\n\n"),
		"location_context":  location,
		"character_context": strings.Join(characterParts, "\n\n"),
	}
}

// foldWorld appends world/*.md content (sorted by basename) to the lore
// payload when the app configures world-folding.
func foldWorld(lore string, worldFiles map[string]string) string {
	var names []string
	for name := range worldFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	parts = append(parts, lore)
	for _, name := range names {
		stem := strings.TrimSuffix(strings.TrimPrefix(name, "world/"), ".md")
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", stem, worldFiles[name]))
	}
	return strings.Join(parts, "\n\n")
}

// varsMap widens a map[string]string plus extra any-typed entries into the
// map[string]any promptrender.Render requires.
func varsMap(strs map[string]string, extra map[string]any) map[string]any {
	out := make(map[string]any, len(strs)+len(extra))
	for k, v := range strs {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// usageFromResult builds a model.UsageRecord from a text generation result,
// deriving total_tokens when absent.
func usageFromResult(step, provider, modelName string, prompt, completion, total *int) model.UsageRecord {
	t := 0
	if total != nil {
		t = *total
	} else if prompt != nil && completion != nil {
		t = *prompt + *completion
	}
	p, c := 0, 0
	if prompt != nil {
		p = *prompt
	}
	if completion != nil {
		c = *completion
	}
	return model.UsageRecord{
		Step:             step,
		Provider:         provider,
		Model:            modelName,
		PromptTokens:     p,
		CompletionTokens: c,
		TotalTokens:      t,
	}
}
