package domain

import "time"

// Tier labels for tiered badge rules.
const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"
)

// Predicate decides whether a rule unlocks for a user given their full
// progress history. Predicates are pure: no mutation, no I/O.
type Predicate func(u *User, history []*ReadingProgress) bool

// AchievementRule is a static achievement definition. Rules are built once
// at process start and shared read-only; per-user unlock state lives on the
// User as UnlockedAchievement records.
type AchievementRule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Reward      int       `json:"reward"`
	Unlocks     Predicate `json:"-"`
}

// BadgeRule is a static badge definition. Badges carry no experience
// reward and, unlike achievements, ignore gamification resets: their
// predicates count lifetime history.
type BadgeRule struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Tier        string    `json:"tier"`
	Unlocks     Predicate `json:"-"`
}

// PostResetHistory filters progress records down to those completed after
// the user's gamification reset cutoff, and strips sessions that ended at
// or before the cutoff from the survivors. With no reset applied it
// returns the history unchanged. Achievement predicates evaluate over this
// view; badge predicates see the unfiltered history.
func PostResetHistory(u *User, history []*ReadingProgress) []*ReadingProgress {
	if !u.Gamification.ResetApplied || u.Gamification.ResetAt == nil {
		return history
	}
	cutoff := *u.Gamification.ResetAt
	out := make([]*ReadingProgress, 0, len(history))
	for _, p := range history {
		if p.CompletedAt != nil && !p.CompletedAt.After(cutoff) {
			continue
		}
		out = append(out, withPostResetSessions(p, cutoff))
	}
	return out
}

// withPostResetSessions returns p without sessions that closed at or
// before the cutoff. Open sessions survive. The stored record is never
// mutated; a shallow copy carries the trimmed slice when needed.
func withPostResetSessions(p *ReadingProgress, cutoff time.Time) *ReadingProgress {
	kept := make([]ReadingSession, 0, len(p.Sessions))
	for i := range p.Sessions {
		s := p.Sessions[i]
		if s.EndTime != nil && !s.EndTime.After(cutoff) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == len(p.Sessions) {
		return p
	}
	view := *p
	view.Sessions = kept
	return &view
}

func countCompleted(history []*ReadingProgress) int {
	var n int
	for _, p := range history {
		if p.Completed() {
			n++
		}
	}
	return n
}

func totalReadingMin(history []*ReadingProgress) int {
	var total int
	for _, p := range history {
		total += p.TotalReadingMin
	}
	return total
}

// DefaultAchievementRules returns the fixed achievement catalog. The
// returned slice is freshly allocated; callers treat it as immutable.
func DefaultAchievementRules() []AchievementRule {
	return []AchievementRule{
		{
			ID:          "first-book-completed",
			Name:        "First Book Completed",
			Description: "Finish your first book",
			Icon:        "book-check",
			Reward:      50,
			Unlocks: func(u *User, history []*ReadingProgress) bool {
				return countCompleted(PostResetHistory(u, history)) >= 1
			},
		},
		{
			ID:          "ten-books-completed",
			Name:        "Ten Books Completed",
			Description: "Finish ten books",
			Icon:        "library",
			Reward:      200,
			Unlocks: func(u *User, history []*ReadingProgress) bool {
				return countCompleted(PostResetHistory(u, history)) >= 10
			},
		},
		{
			ID:          "speed-reader",
			Name:        "Speed Reader",
			Description: "Finish a book within three days of starting it",
			Icon:        "zap",
			Reward:      100,
			Unlocks: func(u *User, history []*ReadingProgress) bool {
				for _, p := range PostResetHistory(u, history) {
					if !p.Completed() || p.StartedAt == nil {
						continue
					}
					if p.CompletedAt.Sub(*p.StartedAt) < 72*time.Hour {
						return true
					}
				}
				return false
			},
		},
		{
			ID:          "marathon-reader",
			Name:        "Marathon Reader",
			Description: "Read for more than two hours in a single session",
			Icon:        "timer",
			Reward:      75,
			Unlocks: func(u *User, history []*ReadingProgress) bool {
				for _, p := range PostResetHistory(u, history) {
					for i := range p.Sessions {
						if p.Sessions[i].DurationMin > 120 {
							return true
						}
					}
				}
				return false
			},
		},
	}
}

// DefaultBadgeRules returns the fixed badge catalog. Badge counts are
// lifetime totals, untouched by gamification resets.
func DefaultBadgeRules() []BadgeRule {
	return []BadgeRule{
		{
			ID:          "bookworm-bronze",
			Name:        "Bookworm Bronze",
			Description: "Complete 5 books",
			Icon:        "medal",
			Tier:        TierBronze,
			Unlocks: func(_ *User, history []*ReadingProgress) bool {
				return countCompleted(history) >= 5
			},
		},
		{
			ID:          "bookworm-silver",
			Name:        "Bookworm Silver",
			Description: "Complete 25 books",
			Icon:        "medal",
			Tier:        TierSilver,
			Unlocks: func(_ *User, history []*ReadingProgress) bool {
				return countCompleted(history) >= 25
			},
		},
		{
			ID:          "bookworm-gold",
			Name:        "Bookworm Gold",
			Description: "Complete 50 books",
			Icon:        "medal",
			Tier:        TierGold,
			Unlocks: func(_ *User, history []*ReadingProgress) bool {
				return countCompleted(history) >= 50
			},
		},
		{
			ID:          "time-master",
			Name:        "Time Master",
			Description: "Accumulate 100 hours of reading time",
			Icon:        "hourglass",
			Unlocks: func(_ *User, history []*ReadingProgress) bool {
				return totalReadingMin(history) >= 6000
			},
		},
	}
}

// RuleByID looks up an achievement rule in a catalog.
func RuleByID(rules []AchievementRule, id string) (AchievementRule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return AchievementRule{}, false
}
