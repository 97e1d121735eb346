package llm

import "testing"

func TestValidateContentMissing(t *testing.T) {
	if _, err := ValidateContent("acme", nil); err == nil {
		t.Fatal("expected MissingAssistantContentError")
	}
}

func TestValidateContentEmpty(t *testing.T) {
	blank := "   \n\t"
	if _, err := ValidateContent("acme", &blank); err == nil {
		t.Fatal("expected EmptyAssistantContentError")
	}
}

func TestValidateContentOK(t *testing.T) {
	s := "hello"
	got, err := ValidateContent("acme", &s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestDeriveTotalTokens(t *testing.T) {
	p, c := 10, 5
	if got := DeriveTotalTokens(&p, &c, nil); got == nil || *got != 15 {
		t.Fatalf("expected derived total 15, got %v", got)
	}
	total := 99
	if got := DeriveTotalTokens(&p, &c, &total); *got != 99 {
		t.Fatalf("expected explicit total preserved, got %v", *got)
	}
	if got := DeriveTotalTokens(nil, &c, nil); got != nil {
		t.Fatalf("expected nil when prompt missing, got %v", got)
	}
}
