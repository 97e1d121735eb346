package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ayy-em/storyforge/internal/atomicfile"
	"github.com/ayy-em/storyforge/internal/jsonrecover"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/promptrender"
	"github.com/ayy-em/storyforge/internal/resilience"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
)

const criticTemperature = 0.7
const criticTimeoutSecs = 300

var sectionFilenameRe = regexp.MustCompile(`^20_section_(\d+)\.md$`)

type criticResponse struct {
	FinalScript  string         `json:"final_script"`
	EditorReport map[string]any `json:"editor_report"`
}

// RunCritic loads every section artifact, assembles the full draft, calls
// the text generator once with an extended timeout, and writes
// final_script.md and editor_report.json. len(outline) is the expected
// section count, used to detect gaps in the numbering.
func RunCritic(d *Deps, seed string, outline []model.Beat) error {
	const stageName = "critic"
	d.Log.StageStart(stageName)

	fullDraft, err := loadAllSections(filepath.Join(d.RunDir, "artifacts"), len(outline))
	if err != nil {
		e := fail(stageName, "load sections", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	outlineJSON, err := json.MarshalIndent(outline, "", "  ")
	if err != nil {
		e := fail(stageName, "marshal outline", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	vars := promptContextVars(d.Selection)
	prompt, err := promptrender.Render(filepath.Join(d.PromptsDir, "30_critic.md"), varsMap(vars, map[string]any{
		"seed":       seed,
		"full_draft": fullDraft,
		"outline":    string(outlineJSON),
	}))
	if err != nil {
		e := fail(stageName, "render prompt", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	var result *llm.TextResult
	retryErr := resilience.Do(d.Generator.Name(), d.MaxRetries, func(attempt int) error {
		start := time.Now()
		r, genErr := d.Generator.Generate(prompt, stageName, llm.GenerateOptions{
			Temperature: criticTemperature,
			TimeoutSecs: criticTimeoutSecs,
		})
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
		e := fail(stageName, "parse critic response", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	if tier != jsonrecover.TierDirect {
		d.Log.Warn("critic response required JSON repair (tier=%d)", tier)
		d.Mets.RecordJSONRepair(context.Background(), stageName, int(tier))
	}

	if err := validateCriticKeys(raw); err != nil {
		e := fail(stageName, "validate response shape", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	finalScript, _ := raw["final_script"].(string)
	editorReport, _ := raw["editor_report"].(map[string]any)

	if err := d.Schema.Validate(filepath.Join(d.SchemaDir, "critic_report.schema.json"), editorReport); err != nil {
		e := fail(stageName, "schema validation", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	scriptPath := filepath.Join(d.RunDir, "artifacts", "final_script.md")
	if err := atomicfile.Write(scriptPath, []byte(finalScript), 0o644); err != nil {
		e := fail(stageName, "write final script", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	reportJSON, err := json.MarshalIndent(editorReport, "", "  ")
	if err != nil {
		e := fail(stageName, "marshal editor report", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}
	reportPath := filepath.Join(d.RunDir, "artifacts", "editor_report.json")
	if err := atomicfile.Write(reportPath, reportJSON, 0o644); err != nil {
		e := fail(stageName, "write editor report", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	usage := usageFromResult(stageName, result.Provider, result.Model, result.PromptTokens, result.CompletionTokens, result.TotalTokens)
	if err := statestore.UpdateState(d.RunDir, func(s *model.State) {
		s.FinalScriptPath = filepath.ToSlash(filepath.Join("artifacts", "final_script.md"))
		s.EditorReportPath = filepath.ToSlash(filepath.Join("artifacts", "editor_report.json"))
		s.TokenUsage = append(s.TokenUsage, usage)
	}); err != nil {
		e := fail(stageName, "update state", err)
		d.Log.StageEnd(stageName, false, e)
		return e
	}

	d.Log.Info("critic: final script %d chars, %d total tokens", len(finalScript), usage.TotalTokens)
	d.Log.StageEnd(stageName, true, nil)
	return nil
}

// loadAllSections discovers every 20_section_NN.md artifact, verifies the
// numbering is dense over {1..expectedCount}, strips frontmatter from each,
// and joins the bodies with blank lines.
func loadAllSections(artifactsDir string, expectedCount int) (string, error) {
	entries, err := os.ReadDir(artifactsDir)
	if err != nil {
		return "", fmt.Errorf("read artifacts dir: %w", err)
	}

	type numbered struct {
		num  int
		path string
	}
	var found []numbered
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := sectionFilenameRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, numbered{num: n, path: filepath.Join(artifactsDir, e.Name())})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no section artifacts found in %s", artifactsDir)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].num < found[j].num })

	seen := make(map[int]bool, len(found))
	for _, f := range found {
		seen[f.num] = true
	}
	var missing []string
	for i := 1; i <= expectedCount; i++ {
		if !seen[i] {
			missing = append(missing, strconv.Itoa(i))
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("section numbering has gaps, missing: %s", strings.Join(missing, ", "))
	}

	var parts []string
	for _, f := range found {
		content, err := os.ReadFile(f.path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.path, err)
		}
		body, err := stripFrontmatter(string(content))
		if err != nil {
			return "", fmt.Errorf("%s: %w", filepath.Base(f.path), err)
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n"), nil
}

func stripFrontmatter(content string) (string, error) {
	m := frontmatterRe.FindStringSubmatch(content)
	if m == nil {
		return "", fmt.Errorf("missing valid YAML frontmatter")
	}
	return m[2], nil
}

// validateCriticKeys enforces the critic response's exact-keys contract:
// final_script (string) and editor_report (object), nothing else.
func validateCriticKeys(raw map[string]any) error {
	const kFinal, kReport = "final_script", "editor_report"
	if _, ok := raw[kFinal]; !ok {
		return fmt.Errorf("response missing required key %q", kFinal)
	}
	if _, ok := raw[kReport]; !ok {
		return fmt.Errorf("response missing required key %q", kReport)
	}
	for k := range raw {
		if k != kFinal && k != kReport {
			return fmt.Errorf("response contains disallowed extra key %q", k)
		}
	}
	if _, ok := raw[kFinal].(string); !ok {
		return fmt.Errorf("%q must be a string", kFinal)
	}
	if _, ok := raw[kReport].(map[string]any); !ok {
		return fmt.Errorf("%q must be an object", kReport)
	}
	return nil
}
