package stage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ayy-em/storyforge/internal/atomicfile"
	"github.com/ayy-em/storyforge/internal/continuity"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/promptrender"
	"github.com/ayy-em/storyforge/internal/resilience"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
	"gopkg.in/yaml.v3"
)

const sectionTemperature = 0.7

var frontmatterRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n(.*)$`)

// sectionSchemaFields are the frontmatter keys the section schema validates;
// every other key the model returns (e.g. title, mood) is carried through
// to the artifact and state untouched but not schema-checked.
var sectionSchemaFields = map[string]struct{}{
	"section_id":         {},
	"local_summary":      {},
	"new_entities":       {},
	"new_locations":      {},
	"unresolved_threads": {},
}

// RunSection generates section (sectionIndex+1) from outline beat
// outline[sectionIndex], writes artifacts/20_section_NN.md, and appends the
// section frontmatter and usage record to state. summaries and ledger are
// the state's current values, read by the orchestrator immediately before
// the call so the loop never races its own writes.
func RunSection(d *Deps, seed string, outline []model.Beat, sectionIndex int, summaries []model.SummaryRecord, ledger map[string]string, sectionLength string) error {
	stageName := fmt.Sprintf("section_%02d", sectionIndex)
	d.Log.StageStart(stageName)

	if sectionIndex < 0 || sectionIndex >= len(outline) {
		e := fail(stageName, fmt.Sprintf("section index %d out of range (outline has %d beats)", sectionIndex, len(outline)), nil)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	beat := outline[sectionIndex]
	sectionID := sectionIndex + 1

	rollingSummary := continuity.BuildRollingSummary(summaries, d.RollingSummaryMinTokens)
	continuityContext := continuity.GetContinuityContext(ledger)

	beatJSON, err := json.MarshalIndent(beat, "", "  ")
	if err != nil {
		e := fail(stageName, "marshal outline beat", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	vars := promptContextVars(d.Selection)
	prompt, err := promptrender.Render(filepath.Join(d.PromptsDir, "20_section.md"), varsMap(vars, map[string]any{
		"section_id":         sectionID,
		"section_index":      sectionIndex,
		"seed":               seed,
		"outline_beat":       string(beatJSON),
		"rolling_summary":    rollingSummary,
		"continuity_context": continuityContext,
		"section_length":     sectionLength,
	}))
	if err != nil {
		e := fail(stageName, "render prompt", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	var result *llm.TextResult
	retryErr := resilience.Do(d.Generator.Name(), d.MaxRetries, func(attempt int) error {
		start := time.Now()
		r, genErr := d.Generator.Generate(prompt, stageName, llm.GenerateOptions{Temperature: sectionTemperature})
		d.recordProviderCall(stageName, "llm", start, genErr)
		if genErr != nil {
			return genErr
		}
		result = r
		return nil
	})
	if retryErr != nil {
		e := fail(stageName, "generate", retryErr)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	m := frontmatterRe.FindStringSubmatch(result.Content)
	if m == nil {
		e := fail(stageName, "missing valid YAML frontmatter", nil)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	frontmatterText, body := m[1], m[2]

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(frontmatterText), &frontmatter); err != nil {
		e := fail(stageName, "invalid YAML in frontmatter", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	if frontmatter == nil {
		e := fail(stageName, "frontmatter must be a YAML mapping", nil)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	frontmatter["section_id"] = sectionID

	forValidation := map[string]any{}
	for k, v := range frontmatter {
		if _, ok := sectionSchemaFields[k]; ok {
			forValidation[k] = v
		}
	}
	if err := d.Schema.Validate(filepath.Join(d.SchemaDir, "section.schema.json"), forValidation); err != nil {
		e := fail(stageName, "schema validation", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	frontmatterYAML, err := yaml.Marshal(frontmatter)
	if err != nil {
		e := fail(stageName, "re-marshal frontmatter", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	full := "---\n" + strings.TrimRight(string(frontmatterYAML), "\n") + "\n---\n\n" + body

	artifactPath := filepath.Join(d.RunDir, "artifacts", fmt.Sprintf("20_section_%02d.md", sectionID))
	if err := atomicfile.Write(artifactPath, []byte(full), 0o644); err != nil {
		e := fail(stageName, "write section artifact", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	usage := usageFromResult(stageName, result.Provider, result.Model, result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	sectionMeta := model.SectionMeta(frontmatter)
	if err := statestore.UpdateState(d.RunDir, func(s *model.State) {
		s.Sections = append(s.Sections, sectionMeta)
		s.TokenUsage = append(s.TokenUsage, usage)
	}); err != nil {
		e := fail(stageName, "update state", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	d.Log.Info("section %02d: %d chars, %d total tokens", sectionID, len(body), usage.TotalTokens)
	d.Log.StageEnd(stageName, true, nil)
	return nil
}
