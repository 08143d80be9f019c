package fitness

import "sort"

// AggregateDifficulty reduces member difficulties by majority vote.
// Ties prefer High, then Low; Medium only wins outright. Empty input is Medium.
func AggregateDifficulty(difficulties []Difficulty) Difficulty {
	var low, medium, high int
	for _, d := range difficulties {
		switch d {
		case DifficultyLow:
			low++
		case DifficultyMedium:
			medium++
		case DifficultyHigh:
			high++
		}
	}

	maxCount := max(low, medium, high)
	switch maxCount {
	case high:
		if maxCount == 0 {
			return DifficultyMedium
		}
		return DifficultyHigh
	case low:
		return DifficultyLow
	default:
		return DifficultyMedium
	}
}

// AggregateMuscles returns the distinct muscles ordered by descending
// frequency. Equal counts keep the order of first occurrence.
func AggregateMuscles(muscles []Muscle) []Muscle {
	counts := make(map[Muscle]int, len(muscles))
	distinct := make([]Muscle, 0, len(muscles))
	for _, m := range muscles {
		if counts[m] == 0 {
			distinct = append(distinct, m)
		}
		counts[m]++
	}

	sort.SliceStable(distinct, func(i, j int) bool {
		return counts[distinct[i]] > counts[distinct[j]]
	})
	return distinct
}
