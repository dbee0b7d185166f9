package domain

import "math"

// The level curve is quadratic-ish: each level costs 100 more experience
// than the previous one, so level n starts at 100 * n * (n-1) / 2 points.
// Level 1 covers 0-99, level 2 covers 100-299, level 3 covers 300-599.
const levelStepExperience = 100

// ExperienceForLevel returns the cumulative experience required to reach
// the given level. Levels below 2 require nothing.
func ExperienceForLevel(level int) int {
	if level < 2 {
		return 0
	}
	return levelStepExperience * level * (level - 1) / 2
}

// LevelForExperience maps accumulated experience to a level number.
// It is pure, deterministic, and monotonically non-decreasing in xp.
func LevelForExperience(xp int) int {
	if xp < levelStepExperience {
		return 1
	}
	// Invert the triangular threshold, then correct for float rounding at
	// the exact boundaries.
	level := int((1 + math.Sqrt(1+8*float64(xp)/levelStepExperience)) / 2)
	for level > 1 && ExperienceForLevel(level) > xp {
		level--
	}
	for ExperienceForLevel(level+1) <= xp {
		level++
	}
	return level
}

// ExperienceToNextLevel returns how many more points are needed to level up.
func ExperienceToNextLevel(xp int) int {
	return ExperienceForLevel(LevelForExperience(xp)+1) - xp
}
