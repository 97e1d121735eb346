package audio

import "testing"

func TestCodecArgsWAV(t *testing.T) {
	args := codecArgs("/tmp/out.wav")
	if len(args) != 2 || args[0] != "-c:a" || args[1] != "pcm_s16le" {
		t.Errorf("unexpected wav codec args: %v", args)
	}
}

func TestCodecArgsMP3(t *testing.T) {
	args := codecArgs("/tmp/out.mp3")
	if len(args) != 4 || args[1] != "libmp3lame" {
		t.Errorf("unexpected mp3 codec args: %v", args)
	}
}

func TestCodecArgsUnknownExtension(t *testing.T) {
	if args := codecArgs("/tmp/out.ogg"); args != nil {
		t.Errorf("expected nil codec args for unrecognized extension, got %v", args)
	}
}
