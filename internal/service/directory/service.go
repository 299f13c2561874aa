package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/repository"
	apperrors "github.com/psyconnect/psyconnect-api/pkg/errors"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
)

const (
	listCacheTTL     = 30 * time.Second
	cacheSweepPeriod = 5 * time.Minute
)

// Service serves the public psychiatrist directory and the admin CRUD
// behind it. Directory listings are read-heavy and change rarely, so they
// sit behind a short-lived in-process cache that is flushed on every
// admin mutation.
type Service struct {
	repo   repository.PsychiatristRepository
	cache  *gocache.Cache
	logger *logger.Logger
}

func NewService(repo repository.PsychiatristRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  gocache.New(listCacheTTL, cacheSweepPeriod),
		logger: logger,
	}
}

// List returns directory entries matching the filters, newest cache entry
// first. Filters are case-insensitive substring matches.
func (s *Service) List(ctx context.Context, filters *model.PsychiatristFilters) ([]*model.Psychiatrist, error) {
	key := listCacheKey(filters)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.Psychiatrist), nil
	}

	psychiatrists, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list psychiatrists: %w", err)
	}

	s.cache.Set(key, psychiatrists, gocache.DefaultExpiration)
	return psychiatrists, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Psychiatrist, error) {
	psychiatrist, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("psychiatrist", err)
		}
		return nil, fmt.Errorf("failed to get psychiatrist: %w", err)
	}
	return psychiatrist, nil
}

func (s *Service) Create(ctx context.Context, req *model.CreatePsychiatristRequest) (*model.Psychiatrist, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.Conflict("a psychiatrist with this email already exists", nil)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check psychiatrist email: %w", err)
	}

	psychiatrist := &model.Psychiatrist{
		Name:      strings.TrimSpace(req.Name),
		Specialty: strings.TrimSpace(req.Specialty),
		Location:  strings.TrimSpace(req.Location),
		Bio:       req.Bio,
		Email:     email,
	}

	if err := s.repo.Create(ctx, psychiatrist); err != nil {
		return nil, fmt.Errorf("failed to create psychiatrist: %w", err)
	}

	s.cache.Flush()
	s.logger.Info("psychiatrist created", "id", psychiatrist.ID.String())
	return psychiatrist, nil
}

// Update applies a partial update: only fields present in the request
// change.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePsychiatristRequest) (*model.Psychiatrist, error) {
	psychiatrist, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		psychiatrist.Name = strings.TrimSpace(*req.Name)
	}
	if req.Specialty != nil {
		psychiatrist.Specialty = strings.TrimSpace(*req.Specialty)
	}
	if req.Location != nil {
		psychiatrist.Location = strings.TrimSpace(*req.Location)
	}
	if req.Bio != nil {
		psychiatrist.Bio = *req.Bio
	}
	if req.Email != nil {
		psychiatrist.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}

	if err := s.repo.Update(ctx, psychiatrist); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("psychiatrist", err)
		}
		return nil, fmt.Errorf("failed to update psychiatrist: %w", err)
	}

	s.cache.Flush()
	return psychiatrist, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("psychiatrist", err)
		}
		return fmt.Errorf("failed to delete psychiatrist: %w", err)
	}

	s.cache.Flush()
	s.logger.Info("psychiatrist deleted", "id", id.String())
	return nil
}

func listCacheKey(filters *model.PsychiatristFilters) string {
	return strings.ToLower(fmt.Sprintf("list:%s|%s|%s", filters.Name, filters.Location, filters.Specialty))
}
