package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// ErrSeedAdminIncomplete indicates the admin email or password is missing.
var ErrSeedAdminIncomplete = errors.New("admin email and password are required")

// SeedService installs the bootstrap admin account and the default badges.
type SeedService interface {
	SeedAdmin(ctx context.Context, email, password string) (models.User, bool, error)
	SeedBadges(ctx context.Context) (int, error)
}

type seedService struct {
	users  repository.UserRepository
	badges repository.BadgeRepository
	logger zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(users repository.UserRepository, badges repository.BadgeRepository, logger zerolog.Logger) SeedService {
	return &seedService{
		users:  users,
		badges: badges,
		logger: logger.With().Str("component", "seed_service").Logger(),
	}
}

// DefaultBadges is the catalogue installed by the seed command.
func DefaultBadges() []models.Badge {
	return []models.Badge{
		{Name: "First Steps", Description: "Submitted your first assignment.", Icon: "sprout", Criterion: models.BadgeCriterionSubmissions, Threshold: 1},
		{Name: "Eco Explorer", Description: "Submitted ten assignments.", Icon: "compass", Criterion: models.BadgeCriterionSubmissions, Threshold: 10},
		{Name: "Green Streak", Description: "Active three days in a row.", Icon: "flame", Criterion: models.BadgeCriterionStreak, Threshold: 3},
		{Name: "Week of Action", Description: "Active seven days in a row.", Icon: "calendar", Criterion: models.BadgeCriterionStreak, Threshold: 7},
		{Name: "Point Collector", Description: "Earned 100 points.", Icon: "leaf", Criterion: models.BadgeCriterionPoints, Threshold: 100},
		{Name: "Planet Guardian", Description: "Earned 500 points.", Icon: "globe", Criterion: models.BadgeCriterionPoints, Threshold: 500},
		{Name: "Perfectionist", Description: "Scored full marks on an assignment.", Icon: "star", Criterion: models.BadgeCriterionPerfectScore, Threshold: 1},
	}
}

// SeedAdmin creates the admin account or resets its password. The boolean
// is true when the account was created.
func (s *seedService) SeedAdmin(ctx context.Context, email, password string) (models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return models.User{}, false, ErrSeedAdminIncomplete
	}

	hash, err := HashPassword(password)
	if err != nil {
		return models.User{}, false, err
	}

	user, err := s.users.GetByIdentifier(ctx, email)
	switch {
	case err == nil:
		user.PasswordHash = hash
		user.Role = models.RoleAdmin
		user.Active = true
		if err := s.users.Update(ctx, &user); err != nil {
			return models.User{}, false, fmt.Errorf("update admin: %w", err)
		}
		s.logger.Info().Uint("user_id", user.ID).Msg("admin account refreshed")
		return user, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Name:         "Administrator",
			Email:        email,
			Username:     strings.SplitN(email, "@", 2)[0],
			PasswordHash: hash,
			Role:         models.RoleAdmin,
			Active:       true,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return models.User{}, false, fmt.Errorf("create admin: %w", err)
		}
		s.logger.Info().Uint("user_id", user.ID).Msg("admin account created")
		return user, true, nil
	default:
		return models.User{}, false, err
	}
}

// SeedBadges installs the default badges that do not exist yet, matched by name.
func (s *seedService) SeedBadges(ctx context.Context) (int, error) {
	existing, err := s.badges.List(ctx)
	if err != nil {
		return 0, err
	}

	names := make(map[string]struct{}, len(existing))
	for _, badge := range existing {
		names[strings.ToLower(badge.Name)] = struct{}{}
	}

	created := 0
	for _, badge := range DefaultBadges() {
		if _, ok := names[strings.ToLower(badge.Name)]; ok {
			continue
		}
		badge := badge
		if err := s.badges.Create(ctx, &badge); err != nil {
			return created, fmt.Errorf("create badge %q: %w", badge.Name, err)
		}
		created++
	}

	s.logger.Info().Int("created", created).Msg("badges seeded")
	return created, nil
}
