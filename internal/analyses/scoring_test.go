package analyses

import "testing"

func TestThresholdsClassify(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score       int
		level       MatchLevel
		recommended bool
	}{
		{score: 100, level: LevelStrongYes, recommended: true},
		{score: 85, level: LevelStrongYes, recommended: true},
		{score: 84, level: LevelYes, recommended: true},
		{score: 70, level: LevelYes, recommended: true},
		{score: 69, level: LevelMaybe, recommended: false},
		{score: 55, level: LevelMaybe, recommended: false},
		{score: 54, level: LevelNo, recommended: false},
		{score: 0, level: LevelNo, recommended: false},
	}
	for _, tt := range tests {
		level, rec := th.Classify(tt.score)
		if level != tt.level || rec != tt.recommended {
			t.Fatalf("Classify(%d) = (%s, %v), want (%s, %v)", tt.score, level, rec, tt.level, tt.recommended)
		}
	}
}

func TestClampScore(t *testing.T) {
	for in, want := range map[int]int{-5: 0, 0: 0, 42: 42, 100: 100, 250: 100} {
		if got := clampScore(in); got != want {
			t.Fatalf("clampScore(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSortByScore(t *testing.T) {
	score := func(n int) *int { return &n }
	in := []Result{
		{SourceName: "failed", Success: false, Error: "x"},
		{SourceName: "low", Success: true, MatchScore: score(40)},
		{SourceName: "high", Success: true, MatchScore: score(91)},
		{SourceName: "mid", Success: true, MatchScore: score(70)},
	}
	got := SortByScore(in)
	want := []string{"high", "mid", "low", "failed"}
	for i, name := range want {
		if got[i].SourceName != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, got[i].SourceName)
		}
	}
	if in[0].SourceName != "failed" {
		t.Fatalf("SortByScore must not reorder its input")
	}
}
