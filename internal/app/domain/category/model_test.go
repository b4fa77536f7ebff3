package category

import "testing"

func TestMultiplier(t *testing.T) {
	cases := []struct {
		name string
		want int64
	}{
		{Research, 1},
		{MarketAnalysis, 3},
		{TechnicalReview, 2},
		{"sentiment", 1},
	}
	for _, tc := range cases {
		if got := Multiplier(tc.name); got != tc.want {
			t.Fatalf("Multiplier(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestReward(t *testing.T) {
	if got := Reward(MarketAnalysis); got != 300 {
		t.Fatalf("Reward(market_analysis) = %d, want 300", got)
	}
	if got := Reward("sentiment"); got != BaseReward {
		t.Fatalf("Reward for unlisted category = %d, want %d", got, BaseReward)
	}
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	if len(defaults) != 3 {
		t.Fatalf("expected 3 default categories, got %d", len(defaults))
	}
	seen := make(map[string]bool)
	for _, name := range defaults {
		seen[name] = true
	}
	for _, want := range []string{Research, MarketAnalysis, TechnicalReview} {
		if !seen[want] {
			t.Fatalf("default categories missing %q", want)
		}
	}
}
