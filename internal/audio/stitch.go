package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stitch concatenates segment files (already in ascending order, a single
// consistent extension) into a single audio file at outputPath without
// re-encoding.
func Stitch(segmentPaths []string, outputPath string) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("audio: stitch: no segments to concatenate")
	}

	concatListPath := outputPath + ".concat.txt"
	var b strings.Builder
	for _, p := range segmentPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("audio: stitch: resolve %s: %w", p, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(abs))
	}
	if err := os.WriteFile(concatListPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("audio: stitch: write concat list: %w", err)
	}
	defer os.Remove(concatListPath)

	if err := runFFmpeg(
		"-f", "concat",
		"-safe", "0",
		"-i", concatListPath,
		"-c", "copy",
		outputPath,
	); err != nil {
		return fmt.Errorf("audio: stitch: %w", err)
	}
	return nil
}

// escapeConcatPath escapes single quotes per ffmpeg's concat demuxer syntax.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
