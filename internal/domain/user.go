package domain

import "time"

// Role represents the user's permission level in the system.
type Role string

const (
	// RoleLibrarian grants catalog moderation access.
	RoleLibrarian Role = "librarian"
	// RoleUser grants standard reader access.
	RoleUser Role = "user"
)

// Valid returns true if the role is a recognized value.
func (r Role) Valid() bool {
	return r == RoleLibrarian || r == RoleUser
}

// User represents a reader account in the system.
type User struct {
	Entity
	Email        string       `json:"email"`
	DisplayName  string       `json:"display_name"`
	Role         Role         `json:"role"`
	IsActive     bool         `json:"is_active"`
	Gamification Gamification `json:"gamification"`
}

// NewUser creates an active user account with zeroed gamification state.
func NewUser(id, email, displayName string, role Role) *User {
	u := &User{
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		IsActive:    true,
	}
	u.ID = id
	u.InitTimestamps()
	return u
}

// IsLibrarian returns true if the user can moderate the catalog and
// administer other users' gamification state.
func (u *User) IsLibrarian() bool {
	return u.Role == RoleLibrarian
}

// Name returns the best available display name for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// RecordReadingDay advances the user's reading streak for activity at now
// and returns true if the streak state changed.
func (u *User) RecordReadingDay(now time.Time) bool {
	return u.Gamification.Streak.Record(now)
}

// AddExperience awards experience points and recomputes the level.
// Negative points are a programming error and are rejected; zero is a no-op.
func (u *User) AddExperience(points int) error {
	if err := u.Gamification.AddExperience(points); err != nil {
		return err
	}
	u.Touch()
	return nil
}
