package audio

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ayy-em/storyforge/internal/atomicfile"
	"github.com/ayy-em/storyforge/internal/model"
	"github.com/ayy-em/storyforge/internal/runlog"
	"github.com/ayy-em/storyforge/internal/statestore"
	"github.com/ayy-em/storyforge/pkg/provider/tts"
)

// maxConcurrentSynthesize bounds how many segments are in flight against the
// TTS provider at once. Providers rate-limit per account, not per process, so
// unbounded fan-out just trades one bottleneck for 429s.
const maxConcurrentSynthesize = 4

// segmentResult is the outcome of synthesizing one chunk, collected before
// any of a run's sequential, order-dependent bookkeeping happens.
type segmentResult struct {
	outputPath string
	usage      model.TTSUsageRecord
	clean      bool
}

// SynthesizeSegments renders each chunk to audio, writing the prompt text
// and resulting bytes under runDir/tts/{prompts,outputs}. The provider calls
// themselves are independent, so they run concurrently (bounded by
// maxConcurrentSynthesize); the state file's TTSUsageRecord list and the
// run log lines are still appended strictly in chunk order afterward, since
// those are a single read-modify-write sequence that must not race.
// Returns the ordered list of segment file paths.
func SynthesizeSegments(runDir string, synth tts.SpeechSynthesizer, chunks []Chunk, opts tts.SynthesizeOptions, ext string, log *runlog.Logger) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	promptsDir := filepath.Join(runDir, "tts", "prompts")
	outputsDir := filepath.Join(runDir, "tts", "outputs")

	results := make([]segmentResult, len(chunks))

	eg, ctx := errgroup.WithContext(context.Background())
	eg.SetLimit(maxConcurrentSynthesize)

	for i, c := range chunks {
		i, c := i, c
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			promptPath := filepath.Join(promptsDir, fmt.Sprintf("segment_%02d.txt", c.Index))
			if err := atomicfile.Write(promptPath, []byte(c.Text), 0o644); err != nil {
				return fmt.Errorf("audio: write %s: %w", promptPath, err)
			}

			result, err := synth.Synthesize(c.Text, opts)
			if err != nil {
				return fmt.Errorf("audio: synthesize segment %d: %w", c.Index, err)
			}
			if len(result.AudioBytes) == 0 {
				return fmt.Errorf("audio: segment %d: %w", c.Index, &tts.EmptyAudioError{Provider: synth.Name()})
			}

			outputPath := filepath.Join(outputsDir, fmt.Sprintf("segment_%02d.%s", c.Index, ext))
			if err := atomicfile.Write(outputPath, result.AudioBytes, 0o644); err != nil {
				return fmt.Errorf("audio: write %s: %w", outputPath, err)
			}

			results[i] = segmentResult{
				outputPath: outputPath,
				clean:      c.Clean,
				usage: model.TTSUsageRecord{
					UsageRecord: model.UsageRecord{
						Step:             fmt.Sprintf("tts_segment_%02d", c.Index),
						Provider:         result.Provider,
						Model:            result.Model,
						PromptTokens:     derefOrZero(result.PromptTokens),
						CompletionTokens: derefOrZero(result.CompletionTokens),
						TotalTokens:      derefOrZero(tts.DeriveTotalTokens(result.PromptTokens, result.CompletionTokens, result.TotalTokens)),
					},
					InputCharacters: result.InputCharacters,
				},
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	outputs := make([]string, 0, len(results))
	cumulative := 0
	for i, c := range chunks {
		r := results[i]
		outputs = append(outputs, r.outputPath)

		if err := statestore.UpdateState(runDir, func(s *model.State) {
			s.TTSTokenUsage = append(s.TTSTokenUsage, r.usage)
		}); err != nil {
			return nil, fmt.Errorf("audio: update state for segment %d: %w", c.Index, err)
		}

		cumulative += r.usage.InputCharacters
		if !r.clean {
			log.Warn("segment %d: imperfect cut (no newline in search window)", c.Index)
		}
		log.Info("segment %02d: %d characters, %d cumulative", c.Index, r.usage.InputCharacters, cumulative)
	}

	return outputs, nil
}

func derefOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
