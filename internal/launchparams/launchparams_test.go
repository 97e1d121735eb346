package launchparams

import "testing"

func intPtr(v int) *int { return &v }

func TestResolveRequiresAppAndSeed(t *testing.T) {
	_, err := Resolve(Params{Beats: intPtr(5)}, 300)
	if err == nil {
		t.Fatal("expected error for missing app/seed")
	}
}

func TestResolveRequiresBeatsOrWordCount(t *testing.T) {
	_, err := Resolve(Params{App: "a", Seed: "s"}, 300)
	if err == nil {
		t.Fatal("expected error when neither beats nor word_count given")
	}
}

func TestResolveBeatsOutOfRange(t *testing.T) {
	_, err := Resolve(Params{App: "a", Seed: "s", Beats: intPtr(21)}, 300)
	if err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestResolveWordCountOnlyDerivesBeats(t *testing.T) {
	r, err := Resolve(Params{App: "a", Seed: "s", WordCount: intPtr(3000)}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Beats != 10 {
		t.Fatalf("expected beats=10, got %d", r.Beats)
	}
	if r.SectionLength != "240-360" {
		t.Fatalf("got section_length %q", r.SectionLength)
	}
}

func TestResolveBeatsAndWordCountQuotientRejected(t *testing.T) {
	_, err := Resolve(Params{App: "a", Seed: "s", Beats: intPtr(2), WordCount: intPtr(200)}, 300)
	if err == nil {
		t.Fatal("expected rejection: word_count/beats=100 is not in open interval (100,1000)")
	}
}

func TestResolveBeatsAndWordCountDerivesSectionLength(t *testing.T) {
	r, err := Resolve(Params{App: "a", Seed: "s", Beats: intPtr(10), WordCount: intPtr(3000)}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SectionLength != "240-360" {
		t.Fatalf("got %q", r.SectionLength)
	}
}

func TestResolveExplicitSectionLengthOverridesDerived(t *testing.T) {
	r, err := Resolve(Params{App: "a", Seed: "s", Beats: intPtr(10), WordCount: intPtr(3000), SectionLength: "100-200"}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.SectionLength != "100-200" {
		t.Fatalf("expected explicit override to win, got %q", r.SectionLength)
	}
}

func TestResolveInvalidLanguage(t *testing.T) {
	_, err := Resolve(Params{App: "a", Seed: "s", Beats: intPtr(5), Language: "eng"}, 300)
	if err == nil {
		t.Fatal("expected error for non-ISO-639-1 language code")
	}
}

func TestResolveValidLanguage(t *testing.T) {
	r, err := Resolve(Params{App: "a", Seed: "s", Beats: intPtr(5), Language: "en"}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Language != "en" {
		t.Fatalf("got %q", r.Language)
	}
}
