package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ayy-em/storyforge/internal/atomicfile"
	"github.com/ayy-em/storyforge/internal/jsonrecover"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/promptrender"
	"github.com/ayy-em/storyforge/internal/resilience"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const outlineTemperature = 0.7

// RunOutline renders and calls the outline prompt, validates the resulting
// document against the required shape and the outline schema, atomically
// writes artifacts/10_outline.json, and appends the outline plus usage to
// state. beatsCount is the number of beats the outline must contain —
// inputs.beats, already resolved by launchparams before the run started.
func RunOutline(d *Deps, seed string, beatsCount int) error {
	const stageName = "outline"
	d.Log.StageStart(stageName)

	vars := promptContextVars(d.Selection)
	prompt, err := promptrender.Render(filepath.Join(d.PromptsDir, "10_outline.md"), varsMap(vars, map[string]any{
		"seed":        seed,
		"beats_count": beatsCount,
	}))
	if err != nil {
		e := fail(stageName, "render prompt", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	var result *llm.TextResult
	retryErr := resilience.Do(d.Generator.Name(), d.MaxRetries, func(attempt int) error {
		start := time.Now()
		r, genErr := d.Generator.Generate(prompt, stageName, llm.GenerateOptions{Temperature: outlineTemperature})
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

	var raw map[string]any
	tier, err := jsonrecover.Extract(result.Content, &raw)
	if err != nil {
		e := fail(stageName, "parse outline JSON", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	if tier != jsonrecover.TierDirect {
		d.Log.Warn("outline response required JSON repair (tier=%d)", tier)
		d.Mets.RecordJSONRepair(context.Background(), stageName, int(tier))
	}

	if err := d.Schema.Validate(filepath.Join(d.SchemaDir, "outline.schema.json"), raw); err != nil {
		e := fail(stageName, "schema validation", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	docBytes, err := json.Marshal(raw)
	if err != nil {
		e := fail(stageName, "re-marshal outline", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	var outline model.Outline
	if err := json.Unmarshal(docBytes, &outline); err != nil {
		e := fail(stageName, "decode outline", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	if len(outline.Beats) != beatsCount {
		e := fail(stageName, fmt.Sprintf("outline has %d beats, but %d were requested", len(outline.Beats), beatsCount), nil)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	for i, b := range outline.Beats {
		if b.Title == "" || b.Summary == "" {
			e := fail(stageName, fmt.Sprintf("beat %d is missing title or summary", i), nil)
			d.Log.StageEnd(stageName, false, e)
			return e
		}
	}

	indented, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		e := fail(stageName, "indent outline", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	artifactPath := filepath.Join(d.RunDir, "artifacts", "10_outline.json")
	if err := atomicfile.Write(artifactPath, indented, 0o644); err != nil {
		e := fail(stageName, "write outline artifact", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	usage := usageFromResult(stageName, result.Provider, result.Model, result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	if err := statestore.UpdateState(d.RunDir, func(s *model.State) {
		s.Outline = outline.Beats
		s.TokenUsage = append(s.TokenUsage, usage)
	}); err != nil {
		e := fail(stageName, "update state", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	d.Log.Info("outline: %d beats, %d total tokens", len(outline.Beats), usage.TotalTokens)
	d.Log.StageEnd(stageName, true, nil)
	return nil
}

// recordProviderCall records duration, request count, and error counters for
// a single provider call.
func (d *Deps) recordProviderCall(step, kind string, start time.Time, err error) {
	if d.Mets == nil {
		return
	}
	ctx := context.Background()
	provider := d.providerName(kind)
	d.Mets.ProviderDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
	status := "ok"
	if err != nil {
		status = "error"
		d.Mets.RecordProviderError(ctx, provider, step)
	}
	d.Mets.RecordProviderRequest(ctx, provider, kind, status)
}

func (d *Deps) providerName(kind string) string {
	if kind == "llm" && d.Generator != nil {
		return d.Generator.Name()
	}
	return kind
}
