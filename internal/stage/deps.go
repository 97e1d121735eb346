package stage

import (
	"github.com/ayy-em/storyforge/internal/contextload"
	"github.com/ayy-em/storyforge/internal/runlog"
	"github.com/ayy-em/storyforge/internal/schema"
	"github.com/ayy-em/storyforge/internal/telemetry"
	"github.com/ayy-em/storyforge/pkg/provider/llm"
)

// Deps bundles everything a text-generation stage needs to run once: the run
// workspace, the context selection made at context-load time, the prompts
// and schema locations, the text generator, and the ambient logger/metrics.
// The orchestrator constructs one Deps per run and passes it unchanged to
// every stage call.
type Deps struct {
	RunDir     string
	PromptsDir string
	SchemaDir  string

	Selection *contextload.Selection

	Generator  llm.TextGenerator
	MaxRetries int

	RollingSummaryMinTokens int

	Schema *schema.Validator
	Log    *runlog.Logger
	Mets   *telemetry.Metrics
}
