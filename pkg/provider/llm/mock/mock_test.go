package mock

import (
	"errors"
	"testing"

	"github.com/ayy-em/storyforge/pkg/provider/llm"
)

func TestProviderRecordsCallsAndReturnsDefault(t *testing.T) {
	p := &Provider{}
	res, err := p.Generate("write a scene", "outline", llm.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "mock response" {
		t.Fatalf("got %q", res.Content)
	}
	if len(p.Calls) != 1 || p.Calls[0].Step != "outline" {
		t.Fatalf("unexpected calls: %#v", p.Calls)
	}
}

func TestProviderErrSeqThenFallback(t *testing.T) {
	p := &Provider{
		ErrSeq: []error{errors.New("transient"), nil},
		Result: &llm.TextResult{Content: "ok"},
	}
	if _, err := p.Generate("p", "section", llm.GenerateOptions{}); err == nil {
		t.Fatal("expected error on first call")
	}
	res, err := p.Generate("p", "section", llm.GenerateOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "ok" {
		t.Fatalf("got %q", res.Content)
	}
}
