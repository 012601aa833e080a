package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/yeremiapane/locum-staffing/models"
	"gorm.io/gorm"
)

// MatchOptions turns the department/location soft filters into hard ones.
type MatchOptions struct {
	SameDepartment bool
	SameLocation   bool
}

// Matches reports whether user may be offered job.
func Matches(job *models.JobPosting, user *models.User, opts MatchOptions) bool {
	if job == nil || user == nil || !user.IsActive {
		return false
	}
	if user.Role != job.RequiredRole {
		return false
	}
	if spec := strings.TrimSpace(job.Specialization); spec != "" && user.Role == models.RoleDoctor {
		if !strings.EqualFold(spec, strings.TrimSpace(user.Specialization)) {
			return false
		}
	}
	if opts.SameDepartment && !strings.EqualFold(job.Department, user.Department) {
		return false
	}
	if opts.SameLocation && !strings.EqualFold(job.Location, user.Location) {
		return false
	}
	return true
}

type CompatibilityMatcher struct {
	DB   *gorm.DB
	Opts MatchOptions
}

func NewCompatibilityMatcher(db *gorm.DB, opts MatchOptions) *CompatibilityMatcher {
	return &CompatibilityMatcher{DB: db, Opts: opts}
}

// FindCandidates returns the active staff eligible for job. An empty slice is not an error.
func (m *CompatibilityMatcher) FindCandidates(ctx context.Context, job *models.JobPosting) ([]models.User, error) {
	var users []models.User
	if err := m.DB.WithContext(ctx).
		Where("role = ? AND is_active = ?", job.RequiredRole, true).
		Order("id asc").
		Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "load candidate staff")
	}

	candidates := make([]models.User, 0, len(users))
	for i := range users {
		if Matches(job, &users[i], m.Opts) {
			candidates = append(candidates, users[i])
		}
	}
	return candidates, nil
}
