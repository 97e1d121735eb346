package jsonrecover

import "testing"

type payload struct {
	FinalScript  string         `json:"final_script"`
	EditorReport map[string]any `json:"editor_report"`
}

func TestExtractDirect(t *testing.T) {
	var p payload
	tier, err := Extract(`{"final_script":"hi","editor_report":{}}`, &p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier != TierDirect {
		t.Fatalf("expected TierDirect, got %v", tier)
	}
	if p.FinalScript != "hi" {
		t.Fatalf("got %q", p.FinalScript)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	content := "Here is the result:\n```json\n{\"final_script\":\"hi\",\"editor_report\":{}}\n```\nDone."
	var p payload
	tier, err := Extract(content, &p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier != TierFencedBlock {
		t.Fatalf("expected TierFencedBlock, got %v", tier)
	}
}

func TestExtractBraceSlice(t *testing.T) {
	content := `Sure thing! {"final_script":"hi","editor_report":{}} Hope that helps!`
	var p payload
	tier, err := Extract(content, &p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier != TierBraceSlice {
		t.Fatalf("expected TierBraceSlice, got %v", tier)
	}
}

func TestExtractRepairsUnescapedQuotes(t *testing.T) {
	content := `{"final_script": "She said "hello" to him", "editor_report": {}}`
	var p payload
	tier, err := Extract(content, &p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tier.Repaired() {
		t.Fatalf("expected a repaired tier, got %v", tier)
	}
	if p.FinalScript == "" {
		t.Fatalf("expected non-empty final_script after repair")
	}
}

func TestExtractFails(t *testing.T) {
	var p payload
	_, err := Extract("not json at all, no braces here", &p)
	if err == nil {
		t.Fatal("expected error")
	}
}
