package audio

import (
	"fmt"
	"math"
)

const crossfadeSeconds = 2.0

// LoopTarget computes how long the looped-and-crossfaded background track
// must be for a voiceover of the given duration: 6 seconds of padding beyond
// the voiceover's length.
func LoopTarget(voiceoverDuration float64) float64 {
	return voiceoverDuration + 6.0
}

// crossfadeCount returns the minimal N such that N copies of a bgDur-second
// track, each successive pair joined by a crossfadeSeconds crossfade,
// reaches at least target seconds: N*bgDur - (N-1)*crossfadeSeconds >= target.
func crossfadeCount(bgDur, target float64) int {
	if bgDur <= crossfadeSeconds {
		return 1
	}
	n := math.Ceil((target - crossfadeSeconds) / (bgDur - crossfadeSeconds))
	if n < 1 {
		n = 1
	}
	return int(n)
}

// LoopAndCrossfade produces outputPath: bgPath looped and equal-power
// crossfaded to reach target seconds, then trimmed to exactly that length.
// If bgPath is 2 seconds or shorter, it is simply looped and trimmed with no
// crossfade (there isn't enough material to overlap).
func LoopAndCrossfade(bgPath, outputPath string, target float64) error {
	bgDur, err := probeDuration(bgPath)
	if err != nil {
		return fmt.Errorf("audio: loop: probe %s: %w", bgPath, err)
	}

	if bgDur <= crossfadeSeconds {
		return runFFmpeg(
			"-stream_loop", "-1",
			"-i", bgPath,
			"-t", fmt.Sprintf("%.3f", target),
			outputPath,
		)
	}

	n := crossfadeCount(bgDur, target)
	if n == 1 {
		return runFFmpeg(
			"-i", bgPath,
			"-t", fmt.Sprintf("%.3f", target),
			outputPath,
		)
	}

	args := []string{}
	for i := 0; i < n; i++ {
		args = append(args, "-i", bgPath)
	}

	filter := buildCrossfadeFilter(n, bgDur)
	args = append(args,
		"-filter_complex", filter,
		"-map", "[out]",
		"-t", fmt.Sprintf("%.3f", target),
		outputPath,
	)
	return runFFmpeg(args...)
}

// buildCrossfadeFilter chains n identical inputs with acrossfade filters,
// each overlap crossfadeSeconds long using an equal-power curve.
func buildCrossfadeFilter(n int, segDur float64) string {
	if n == 1 {
		return "[0:a]anull[out]"
	}

	// qsin is ffmpeg's quarter-sine curve, the standard equal-power crossfade
	// shape: constant perceived loudness through the overlap instead of a
	// linear (triangular) fade's dip at the midpoint.
	chain := fmt.Sprintf("[0][1]acrossfade=d=%g:c1=qsin:c2=qsin[x1]", crossfadeSeconds)
	last := "x1"
	for i := 2; i < n; i++ {
		next := fmt.Sprintf("x%d", i)
		chain += fmt.Sprintf(";[%s][%d]acrossfade=d=%g:c1=qsin:c2=qsin[%s]", last, i, crossfadeSeconds, next)
		last = next
	}
	chain += fmt.Sprintf(";[%s]anull[out]", last)
	return chain
}
