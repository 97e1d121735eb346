package audio

import (
	"fmt"
	"strings"
)

const voiceoverGain = 1.5

// Mix combines voicePath and enveloped background music duckedBgPath into
// outputPath, applying a 1.5x gain to the voiceover and taking the
// voiceover's duration as the mix length. The output codec is selected from
// outputPath's extension: ".wav" -> PCM s16le, ".mp3" -> VBR ~q2, anything
// else is passed through to ffmpeg's own extension-based muxer choice.
func Mix(voicePath, duckedBgPath, outputPath string) error {
	filter := fmt.Sprintf("[0:a]volume=%g[v];[v][1:a]amix=inputs=2:duration=first[out]", voiceoverGain)

	args := []string{
		"-i", voicePath,
		"-i", duckedBgPath,
		"-filter_complex", filter,
		"-map", "[out]",
	}
	args = append(args, codecArgs(outputPath)...)
	args = append(args, outputPath)

	return runFFmpeg(args...)
}

func codecArgs(outputPath string) []string {
	switch {
	case strings.HasSuffix(outputPath, ".wav"):
		return []string{"-c:a", "pcm_s16le"}
	case strings.HasSuffix(outputPath, ".mp3"):
		return []string{"-c:a", "libmp3lame", "-q:a", "2"}
	default:
		return nil
	}
}
