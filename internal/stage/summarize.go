package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayy-em/storyforge/internal/continuity"
	"github.com/ayy-em/storyforge/internal/jsonrecover"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/promptrender"
	"github.com/ayy-em/storyforge/internal/resilience"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
)

const summarizeTemperature = 0.5

// RunSummarize reads the just-written section artifact, summarizes it, and
// merges the returned continuity updates into the ledger. sectionIndex is
// zero-based; the paired section must already have been written by
// RunSection.
func RunSummarize(d *Deps, sectionIndex int, currentLedger map[string]string) error {
	stageName := fmt.Sprintf("summarize_%02d", sectionIndex)
	d.Log.StageStart(stageName)

	sectionID := sectionIndex + 1
	artifactPath := filepath.Join(d.RunDir, "artifacts", fmt.Sprintf("20_section_%02d.md", sectionID))
	sectionContent, err := os.ReadFile(artifactPath)
	if err != nil {
		e := fail(stageName, "read section artifact", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	prompt, err := promptrender.Render(filepath.Join(d.PromptsDir, "21_summarize.md"), map[string]any{
		"section_id":      sectionID,
		"section_content": string(sectionContent),
	})
	if err != nil {
		e := fail(stageName, "render prompt", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	var result *llm.TextResult
	retryErr := resilience.Do(d.Generator.Name(), d.MaxRetries, func(attempt int) error {
		start := time.Now()
		r, genErr := d.Generator.Generate(prompt, stageName, llm.GenerateOptions{Temperature: summarizeTemperature})
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

	var summaryData map[string]any
	tier, err := jsonrecover.Extract(result.Content, &summaryData)
	if err != nil {
		e := fail(stageName, "parse summary JSON", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	if tier != jsonrecover.TierDirect {
		d.Log.Warn("summarize response required JSON repair (tier=%d)", tier)
		d.Mets.RecordJSONRepair(context.Background(), stageName, int(tier))
	}
	summaryData["section_id"] = sectionID

	if err := d.Schema.Validate(filepath.Join(d.SchemaDir, "summary.schema.json"), summaryData); err != nil {
		e := fail(stageName, "schema validation", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	rawUpdates, ok := summaryData["continuity_updates"]
	if !ok {
		rawUpdates = map[string]any{}
	}
	updatesMap, ok := rawUpdates.(map[string]any)
	if !ok {
		e := fail(stageName, "continuity_updates must be a mapping", nil)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	updates := make(map[string]string, len(updatesMap))
	for k, v := range updatesMap {
		s, ok := v.(string)
		if !ok {
			e := fail(stageName, fmt.Sprintf("continuity_updates[%q] must be a string", k), nil)
			d.Log.StageEnd(stageName, false, e)
			return e
		}
		updates[k] = s
	}
	mergedLedger := continuity.MergeContinuityUpdates(currentLedger, updates)

	summaryText, _ := summaryData["summary"].(string)
	record := model.SummaryRecord{
		SectionID:         sectionID,
		Summary:           summaryText,
		ContinuityUpdates: updates,
	}

	usage := usageFromResult(stageName, result.Provider, result.Model, result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	if err := statestore.UpdateState(d.RunDir, func(s *model.State) {
		s.Summaries = append(s.Summaries, record)
		s.ContinuityLedger = mergedLedger
		s.TokenUsage = append(s.TokenUsage, usage)
	}); err != nil {
		e := fail(stageName, "update state", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	d.Log.Info("summarize %02d: %d continuity updates, %d total tokens", sectionID, len(updates), usage.TotalTokens)
	d.Log.StageEnd(stageName, true, nil)
	return nil
}
