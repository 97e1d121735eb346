package stage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayy-em/storyforge/internal/contextload"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/runlog"
	"github.com/ayy-em/storyforge/internal/schema"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/internal/telemetry"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
	"github.com/ayy-em/storyforge/pkg/provider/llm/mock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func newTestDeps(t *testing.T) (*Deps, string) {
	t.Helper()
	runDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(runDir, "artifacts"), 0o755); err != nil {
		t.Fatal(err)
	}

	state := model.NewInitialState("demo-app", "a lonely lighthouse")
	data, _ := json.MarshalIndent(state, "", "  ")
	if err := os.WriteFile(filepath.Join(runDir, "state.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	promptsDir := t.TempDir()
	schemaDir := t.TempDir()
	for _, name := range []string{"outline.schema.json", "section.schema.json", "summary.schema.json", "critic_report.schema.json"} {
		if err := os.WriteFile(filepath.Join(schemaDir, name), []byte(`{}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	logger, err := runlog.Open(runDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = logger.Close() })

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	mets, err := telemetry.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	sel := &contextload.Selection{
		AlwaysLoaded: map[string]string{"lore_bible.md": "The lighthouse keeper never sleeps."},
	}

	return &Deps{
		RunDir:                  runDir,
		PromptsDir:              promptsDir,
		SchemaDir:               schemaDir,
		Selection:               sel,
		MaxRetries:              1,
		RollingSummaryMinTokens: 400,
		Schema:                  schema.New(),
		Log:                     logger,
		Mets:                    mets,
	}, runDir
}

func writePromptTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunOutlineSuccess(t *testing.T) {
	d, runDir := newTestDeps(t)
	writePromptTemplate(t, d.PromptsDir, "10_outline.md",
		"Seed: {seed}\nBeats: {beats_count}\nLore: {lore_bible}\nStyle: {style_rules}\nLocation: {location_context}\nCharacters: {character_context}")

	d.Generator = &mock.Provider{
		Result: &llm.TextResult{
			Content:  `{"beats":[{"beat_id":1,"title":"Arrival","summary":"She arrives."},{"beat_id":2,"title":"Storm","summary":"A storm hits."}]}`,
			Provider: "mock",
			Model:    "test-model",
		},
	}

	if err := RunOutline(d, "a lonely lighthouse", 2); err != nil {
		t.Fatalf("RunOutline: %v", err)
	}

	st, err := statestore.LoadState(runDir)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(st.Outline) != 2 {
		t.Fatalf("expected 2 beats in state, got %d", len(st.Outline))
	}
	if st.Outline[0].Title != "Arrival" {
		t.Errorf("got title %q", st.Outline[0].Title)
	}
	if len(st.TokenUsage) != 1 {
		t.Fatalf("expected 1 usage record, got %d", len(st.TokenUsage))
	}

	if _, err := os.Stat(filepath.Join(runDir, "artifacts", "10_outline.json")); err != nil {
		t.Errorf("outline artifact not written: %v", err)
	}
}

func TestRunOutlineBeatCountMismatchFails(t *testing.T) {
	d, _ := newTestDeps(t)
	writePromptTemplate(t, d.PromptsDir, "10_outline.md", "{seed}{beats_count}{lore_bible}{style_rules}{location_context}{character_context}")

	d.Generator = &mock.Provider{
		Result: &llm.TextResult{
			Content: `{"beats":[{"beat_id":1,"title":"Only one","summary":"Not enough."}]}`,
		},
	}

	err := RunOutline(d, "seed", 3)
	if err == nil {
		t.Fatal("expected error on beat count mismatch")
	}
	if !strings.Contains(err.Error(), "but 3 were requested") {
		t.Errorf("expected error to mention but 3 were requested, got: %v", err)
	}
}

func TestRunOutlineRetriesOnTransientError(t *testing.T) {
	d, _ := newTestDeps(t)
	writePromptTemplate(t, d.PromptsDir, "10_outline.md", "{seed}{beats_count}{lore_bible}{style_rules}{location_context}{character_context}")

	d.MaxRetries = 2
	d.Generator = &mock.Provider{
		ErrSeq: []error{errTransient{}, nil},
		Result: &llm.TextResult{Content: `{"beats":[{"beat_id":1,"title":"A","summary":"B"}]}`},
	}

	if err := RunOutline(d, "seed", 1); err != nil {
		t.Fatalf("RunOutline: %v", err)
	}
}

type errTransient struct{}

func (errTransient) Error() string { return "temporary network blip" }

func TestRunOutlineMalformedJSONFails(t *testing.T) {
	d, _ := newTestDeps(t)
	writePromptTemplate(t, d.PromptsDir, "10_outline.md", "{seed}{beats_count}{lore_bible}{style_rules}{location_context}{character_context}")

	d.Generator = &mock.Provider{Result: &llm.TextResult{Content: "not json at all and no braces"}}

	if err := RunOutline(d, "seed", 1); err == nil {
		t.Fatal("expected error for unparsable content")
	}
}
