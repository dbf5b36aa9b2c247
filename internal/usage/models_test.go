package usage

import "testing"

func TestDailyUsageTotals(t *testing.T) {
	row := DailyUsage{InputTokens: 2, OutputTokens: 3, ModelCalls: 3, Fallbacks: 1}
	if row.TotalTokens() != 5 {
		t.Fatalf("unexpected total tokens")
	}
	if row.FallbackRatio() != 0.25 {
		t.Fatalf("unexpected fallback ratio: %v", row.FallbackRatio())
	}
	if (DailyUsage{}).FallbackRatio() != 0 {
		t.Fatalf("expected zero ratio without judgments")
	}
}

func TestDeltaEmpty(t *testing.T) {
	if !(Delta{}).Empty() {
		t.Fatalf("zero delta should be empty")
	}
	if (Delta{Fallbacks: 1}).Empty() {
		t.Fatalf("fallback delta should not be empty")
	}
}
