package continuity

import (
	"strings"
	"testing"

	"github.com/ayy-em/storyforge/internal/model"
)

func TestBuildRollingSummaryEmpty(t *testing.T) {
	got := BuildRollingSummary(nil, MinTokens)
	if got != "No previous sections." {
		t.Fatalf("got %q", got)
	}
}

func TestBuildRollingSummaryOrdersChronologically(t *testing.T) {
	summaries := []model.SummaryRecord{
		{SectionID: 1, Summary: strings.Repeat("alpha ", 20)},
		{SectionID: 2, Summary: strings.Repeat("beta ", 20)},
		{SectionID: 3, Summary: strings.Repeat("gamma ", 20)},
	}
	got := BuildRollingSummary(summaries, MinTokens)

	iA := strings.Index(got, "Section 01")
	iB := strings.Index(got, "Section 02")
	iC := strings.Index(got, "Section 03")
	if iA == -1 || iB == -1 || iC == -1 {
		t.Fatalf("expected all three sections present, got %q", got)
	}
	if !(iA < iB && iB < iC) {
		t.Fatalf("expected chronological order, got %q", got)
	}
}

func TestBuildRollingSummaryRespectsCeiling(t *testing.T) {
	huge := strings.Repeat("word ", 1000)
	summaries := []model.SummaryRecord{
		{SectionID: 1, Summary: "short one"},
		{SectionID: 2, Summary: huge},
	}
	got := BuildRollingSummary(summaries, MinTokens)
	if strings.Contains(got, "Section 01") {
		t.Fatalf("expected oldest excluded when newest alone exceeds ceiling, got %q", got)
	}
	if got != "No previous sections." {
		t.Fatalf("expected placeholder when newest alone exceeds ceiling, got %q", got)
	}
}

func TestMergeContinuityUpdatesLastWriteWins(t *testing.T) {
	ledger := map[string]string{"a": "old", "b": "keep"}
	updates := map[string]string{"a": "new", "c": "added"}
	merged := MergeContinuityUpdates(ledger, updates)

	if merged["a"] != "new" || merged["b"] != "keep" || merged["c"] != "added" {
		t.Fatalf("unexpected merge result: %#v", merged)
	}
	if ledger["a"] != "old" {
		t.Fatalf("input ledger must not be mutated, got %#v", ledger)
	}
}

func TestGetContinuityContextEmpty(t *testing.T) {
	got := GetContinuityContext(nil)
	if got != "No continuity information available." {
		t.Fatalf("got %q", got)
	}
}

func TestGetContinuityContextSortedKeys(t *testing.T) {
	ledger := map[string]string{"zebra": "z", "apple": "a"}
	got := GetContinuityContext(ledger)
	iA := strings.Index(got, "apple")
	iZ := strings.Index(got, "zebra")
	if iA == -1 || iZ == -1 || iA > iZ {
		t.Fatalf("expected sorted key order, got %q", got)
	}
}
