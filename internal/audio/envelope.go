package audio

import "fmt"

// envelopeExpr returns an ffmpeg volume-filter time expression implementing
// the piecewise-linear background music envelope:
//
//	t in [0, 1.5)                      -> 0.75
//	t in [1.5, 3)                      -> linear 0.75 -> 0.10
//	t in [3, voiceDuration)             -> 0.10
//	t in [voiceDuration, voiceDuration+2) -> linear 0.10 -> 0.70
//	t >= voiceDuration+2                -> 0.70
func envelopeExpr(voiceDuration float64) string {
	rampDown := fmt.Sprintf("(0.75+(0.10-0.75)*(t-1.5)/1.5)")
	rampUp := fmt.Sprintf("(0.10+(0.70-0.10)*(t-%g)/2)", voiceDuration)

	tail := fmt.Sprintf("if(lt(t,%g+2),%s,0.70)", voiceDuration, rampUp)
	sustain := fmt.Sprintf("if(lt(t,%g),0.10,%s)", voiceDuration, tail)
	ramp := fmt.Sprintf("if(lt(t,3),%s,%s)", rampDown, sustain)
	return fmt.Sprintf("if(lt(t,1.5),0.75,%s)", ramp)
}

// ApplyEnvelope writes outputPath: inputPath with the narration-ducking
// volume envelope applied, evaluated per-frame so the expression can
// reference the playback clock t.
func ApplyEnvelope(inputPath, outputPath string, voiceDuration float64) error {
	filter := fmt.Sprintf("volume=eval=frame:volume='%s'", envelopeExpr(voiceDuration))
	return runFFmpeg(
		"-i", inputPath,
		"-af", filter,
		outputPath,
	)
}
