package domain

import (
	"errors"
	"time"
)

// ErrNegativeExperience is returned when a caller tries to award a negative
// number of experience points. Callers must reject, not clamp.
var ErrNegativeExperience = errors.New("experience points must be non-negative")

// Gamification holds a user's progression state: experience, derived level,
// reading streak, and unlocked achievements/badges.
//
// Level is persisted but always derived - AddExperience is the only writer,
// so Level == LevelForExperience(Experience) holds between mutations.
type Gamification struct {
	Experience   int                   `json:"experience"`
	Level        int                   `json:"level"`
	Streak       Streak                `json:"streak"`
	Achievements []UnlockedAchievement `json:"achievements,omitempty"`
	Badges       []EarnedBadge         `json:"badges,omitempty"`

	// ResetApplied and ResetAt record an administrative reset. Achievements
	// and completed-book history dated before ResetAt are ignored by rule
	// evaluation, but the underlying progress records are kept.
	ResetApplied bool       `json:"reset_applied,omitempty"`
	ResetAt      *time.Time `json:"reset_at,omitempty"`
}

// NewGamification returns zeroed progression state at level 1.
func NewGamification() Gamification {
	return Gamification{Level: 1}
}

// AddExperience adds points and recomputes the level.
// Rejects negative points; zero leaves experience and level unchanged.
func (g *Gamification) AddExperience(points int) error {
	if points < 0 {
		return ErrNegativeExperience
	}
	g.Experience += points
	g.Level = LevelForExperience(g.Experience)
	return nil
}

// UnlockedAchievement is the per-user record of an unlocked achievement.
// AwardedBy and Reason are set only on the manual award path.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
	AwardedBy  string    `json:"awarded_by,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// EarnedBadge is the per-user record of an earned badge.
type EarnedBadge struct {
	ID       string    `json:"id"`
	EarnedAt time.Time `json:"earned_at"`
}

// HasAchievement returns true if the achievement is already unlocked,
// regardless of any reset cutoff.
func (g *Gamification) HasAchievement(id string) bool {
	for _, a := range g.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasBadge returns true if the badge is already earned.
func (g *Gamification) HasBadge(id string) bool {
	for _, b := range g.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// UnlockAchievement appends an unlock record. Returns false if the
// achievement was already unlocked.
func (g *Gamification) UnlockAchievement(id string, now time.Time) bool {
	if g.HasAchievement(id) {
		return false
	}
	g.Achievements = append(g.Achievements, UnlockedAchievement{ID: id, UnlockedAt: now})
	return true
}

// AwardAchievement appends a manually granted unlock record with attribution.
// Returns false if the achievement was already unlocked.
func (g *Gamification) AwardAchievement(id, awardedBy, reason string, now time.Time) bool {
	if g.HasAchievement(id) {
		return false
	}
	g.Achievements = append(g.Achievements, UnlockedAchievement{
		ID:         id,
		UnlockedAt: now,
		AwardedBy:  awardedBy,
		Reason:     reason,
	})
	return true
}

// EarnBadge appends an earn record. Returns false if already earned.
func (g *Gamification) EarnBadge(id string, now time.Time) bool {
	if g.HasBadge(id) {
		return false
	}
	g.Badges = append(g.Badges, EarnedBadge{ID: id, EarnedAt: now})
	return true
}

// ActiveAchievements returns achievements unlocked after the reset cutoff.
// Without a reset it returns all of them.
func (g *Gamification) ActiveAchievements() []UnlockedAchievement {
	if g.ResetAt == nil {
		return g.Achievements
	}
	active := make([]UnlockedAchievement, 0, len(g.Achievements))
	for _, a := range g.Achievements {
		if a.UnlockedAt.After(*g.ResetAt) {
			active = append(active, a)
		}
	}
	return active
}

// ActiveBadges returns badges earned after the reset cutoff.
func (g *Gamification) ActiveBadges() []EarnedBadge {
	if g.ResetAt == nil {
		return g.Badges
	}
	active := make([]EarnedBadge, 0, len(g.Badges))
	for _, b := range g.Badges {
		if b.EarnedAt.After(*g.ResetAt) {
			active = append(active, b)
		}
	}
	return active
}

// Reset zeroes all progression state and stamps the reset cutoff.
// Historical progress records are untouched; rule evaluation uses the
// cutoff to ignore anything completed before it.
func (g *Gamification) Reset(now time.Time) {
	g.Experience = 0
	g.Level = 1
	g.Streak = Streak{}
	g.Achievements = nil
	g.Badges = nil
	g.ResetApplied = true
	g.ResetAt = &now
}
