package analyses

// Thresholds maps a 0-100 match score to a MatchLevel. Each value is the
// inclusive lower bound of its level.
type Thresholds struct {
	StrongYes int
	Yes       int
	Maybe     int
}

func DefaultThresholds() Thresholds {
	return Thresholds{StrongYes: 85, Yes: 70, Maybe: 55}
}

// Classify returns the level for score and whether the candidate is
// recommended. Only strong_yes and yes are recommended.
func (t Thresholds) Classify(score int) (MatchLevel, bool) {
	switch {
	case score >= t.StrongYes:
		return LevelStrongYes, true
	case score >= t.Yes:
		return LevelYes, true
	case score >= t.Maybe:
		return LevelMaybe, false
	default:
		return LevelNo, false
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
