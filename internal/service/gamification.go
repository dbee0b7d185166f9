package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/readquestapp/readquest-server/internal/domain"
	domainerrors "github.com/readquestapp/readquest-server/internal/errors"
	"github.com/readquestapp/readquest-server/internal/store"
)

// GamificationService owns experience, streaks, and the achievement and
// badge rule catalogs. Rule state (unlocks, earned badges) lives on the
// user record; the catalogs themselves are static.
type GamificationService struct {
	store        *store.Store
	achievements []domain.AchievementRule
	badges       []domain.BadgeRule
	logger       *slog.Logger
}

func NewGamificationService(s *store.Store, logger *slog.Logger) *GamificationService {
	return &GamificationService{
		store:        s,
		achievements: domain.DefaultAchievementRules(),
		badges:       domain.DefaultBadgeRules(),
		logger:       logger,
	}
}

// AddExperience grants raw experience points and returns the user with
// any resulting level change applied.
func (s *GamificationService) AddExperience(ctx context.Context, userID string, points int) (*domain.User, error) {
	if points < 0 {
		return nil, domainerrors.Validation("points must be non-negative")
	}

	user, err := s.store.UpdateUserWith(ctx, userID, func(u *domain.User) error {
		return u.AddExperience(points)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("adding experience for %s: %w", userID, err)
	}

	s.logger.Debug("experience added", "user_id", userID, "points", points, "level", user.Gamification.Level)
	return user, nil
}

// RecordActivity counts a qualifying reading day toward the user's streak.
func (s *GamificationService) RecordActivity(ctx context.Context, userID string, now time.Time) (*domain.User, error) {
	user, err := s.store.UpdateUserWith(ctx, userID, func(u *domain.User) error {
		u.RecordReadingDay(now)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("recording activity for %s: %w", userID, err)
	}
	return user, nil
}

// EvaluationResult reports what a rule evaluation pass unlocked.
type EvaluationResult struct {
	NewAchievements []domain.AchievementRule `json:"newAchievements"`
	NewBadges       []domain.BadgeRule       `json:"newBadges"`
	ExperienceDelta int                      `json:"experienceDelta"`
}

// Evaluate runs every achievement and badge rule against the user's
// reading history and unlocks whatever newly qualifies. Achievement
// predicates see only post-reset history; badge predicates see lifetime
// history. Rewards for all newly unlocked achievements are summed and
// applied as a single experience grant. Already-unlocked rules are
// skipped, so repeated evaluation is idempotent.
func (s *GamificationService) Evaluate(ctx context.Context, userID string) (*EvaluationResult, error) {
	history, err := s.store.ListUserProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading reading history for %s: %w", userID, err)
	}

	now := time.Now()
	result := &EvaluationResult{
		NewAchievements: []domain.AchievementRule{},
		NewBadges:       []domain.BadgeRule{},
	}

	_, err = s.store.UpdateUserWith(ctx, userID, func(u *domain.User) error {
		// The mutation can re-run on transaction retry. Rebuild the
		// result from scratch each attempt.
		result.NewAchievements = result.NewAchievements[:0]
		result.NewBadges = result.NewBadges[:0]
		result.ExperienceDelta = 0

		active := domain.PostResetHistory(u, history)
		for _, rule := range s.achievements {
			if u.Gamification.HasAchievement(rule.ID) {
				continue
			}
			if !rule.Unlocks(u, active) {
				continue
			}
			u.Gamification.UnlockAchievement(rule.ID, now)
			result.NewAchievements = append(result.NewAchievements, rule)
			result.ExperienceDelta += rule.Reward
		}

		for _, rule := range s.badges {
			if u.Gamification.HasBadge(rule.ID) {
				continue
			}
			if !rule.Unlocks(u, history) {
				continue
			}
			u.Gamification.EarnBadge(rule.ID, now)
			result.NewBadges = append(result.NewBadges, rule)
		}

		if result.ExperienceDelta > 0 {
			return u.AddExperience(result.ExperienceDelta)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("evaluating rules for %s: %w", userID, err)
	}

	if len(result.NewAchievements) > 0 || len(result.NewBadges) > 0 {
		s.logger.Info("rules unlocked",
			"user_id", userID,
			"achievements", len(result.NewAchievements),
			"badges", len(result.NewBadges),
			"experience_delta", result.ExperienceDelta)
	}
	return result, nil
}

type AwardAchievementRequest struct {
	RuleID string `json:"ruleId" validate:"required"`
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// Award manually unlocks an achievement for a user, recording who granted
// it and why. The rule's normal experience reward still applies. Awarding
// an already-unlocked achievement is rejected.
func (s *GamificationService) Award(ctx context.Context, awardedBy, userID string, req AwardAchievementRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	rule, ok := domain.RuleByID(s.achievements, req.RuleID)
	if !ok {
		return nil, domainerrors.NotFound("achievement rule not found")
	}

	now := time.Now()
	user, err := s.store.UpdateUserWith(ctx, userID, func(u *domain.User) error {
		if !u.Gamification.AwardAchievement(rule.ID, awardedBy, req.Reason, now) {
			return domainerrors.AlreadyExists("achievement already unlocked")
		}
		return u.AddExperience(rule.Reward)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		var appErr *domainerrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("awarding achievement %s to %s: %w", rule.ID, userID, err)
	}

	s.logger.Info("achievement awarded", "user_id", userID, "rule_id", rule.ID, "awarded_by", awardedBy)
	return user, nil
}

// Reset clears a user's gamification state. Reading history is kept, but
// a reset cutoff is stamped so achievement rules ignore books completed
// before it.
func (s *GamificationService) Reset(ctx context.Context, userID string) (*domain.User, error) {
	now := time.Now()
	user, err := s.store.UpdateUserWith(ctx, userID, func(u *domain.User) error {
		u.Gamification.Reset(now)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("resetting gamification for %s: %w", userID, err)
	}

	s.logger.Info("gamification reset", "user_id", userID)
	return user, nil
}

// Summary is the gamification overview for a single user.
type Summary struct {
	Experience            int                          `json:"experience"`
	Level                 int                          `json:"level"`
	ExperienceToNextLevel int                          `json:"experienceToNextLevel"`
	Streak                domain.Streak                `json:"streak"`
	Achievements          []domain.UnlockedAchievement `json:"achievements"`
	Badges                []domain.EarnedBadge         `json:"badges"`
}

func (s *GamificationService) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	user, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("getting user %s: %w", userID, err)
	}

	g := user.Gamification
	return &Summary{
		Experience:            g.Experience,
		Level:                 g.Level,
		ExperienceToNextLevel: domain.ExperienceToNextLevel(g.Experience),
		Streak:                g.Streak,
		Achievements:          g.ActiveAchievements(),
		Badges:                g.ActiveBadges(),
	}, nil
}

// AchievementRules returns the static achievement catalog.
func (s *GamificationService) AchievementRules() []domain.AchievementRule {
	return s.achievements
}

// BadgeRules returns the static badge catalog.
func (s *GamificationService) BadgeRules() []domain.BadgeRule {
	return s.badges
}
