package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/repository"
)

// BadgeService manages the badge catalogue.
type BadgeService interface {
	List(ctx context.Context) ([]dto.BadgeResponse, error)
	Create(ctx context.Context, actor Actor, req dto.BadgeCreateRequest) (dto.BadgeResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.BadgeUpdateRequest) (dto.BadgeResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type badgeService struct {
	repo      repository.BadgeRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewBadgeService constructs the badge catalogue service.
func NewBadgeService(repo repository.BadgeRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) BadgeService {
	return &badgeService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "badge_service").Logger(),
	}
}

func (s *badgeService) List(ctx context.Context) ([]dto.BadgeResponse, error) {
	badges, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.BadgeResponse, 0, len(badges))
	for _, badge := range badges {
		responses = append(responses, dto.NewBadgeResponse(badge))
	}
	return responses, nil
}

func (s *badgeService) Create(ctx context.Context, actor Actor, req dto.BadgeCreateRequest) (dto.BadgeResponse, error) {
	if !actor.IsAdmin() {
		return dto.BadgeResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.BadgeResponse{}, err
	}

	badge := models.Badge{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
		Criterion:   req.Criterion,
		Threshold:   req.Threshold,
	}

	if err := s.repo.Create(ctx, &badge); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return dto.BadgeResponse{}, ErrBadgeNameTaken
		}
		return dto.BadgeResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "badge.create", "badge", &badge.ID, map[string]interface{}{
		"name":      badge.Name,
		"criterion": badge.Criterion,
		"threshold": badge.Threshold,
	})

	return dto.NewBadgeResponse(badge), nil
}

func (s *badgeService) Update(ctx context.Context, actor Actor, id uint, req dto.BadgeUpdateRequest) (dto.BadgeResponse, error) {
	if !actor.IsAdmin() {
		return dto.BadgeResponse{}, ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.BadgeResponse{}, err
	}

	badge, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BadgeResponse{}, ErrBadgeNotFound
		}
		return dto.BadgeResponse{}, err
	}

	if req.Name != nil {
		badge.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		badge.Description = strings.TrimSpace(*req.Description)
	}
	if req.Icon != nil {
		badge.Icon = strings.TrimSpace(*req.Icon)
	}
	if req.Criterion != nil {
		badge.Criterion = *req.Criterion
	}
	if req.Threshold != nil {
		badge.Threshold = *req.Threshold
	}

	if err := s.repo.Update(ctx, &badge); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return dto.BadgeResponse{}, ErrBadgeNameTaken
		}
		return dto.BadgeResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "badge.update", "badge", &badge.ID, nil)

	return dto.NewBadgeResponse(badge), nil
}

func (s *badgeService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBadgeNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor.activityActor(), "badge.delete", "badge", &id, nil)
	return nil
}

// isUniqueViolation recognises unique constraint errors from drivers that do
// not translate them into gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "unique_violation")
}
