package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/internal/repository"
	"github.com/psyconnect/psyconnect-api/pkg/auth"
	apperrors "github.com/psyconnect/psyconnect-api/pkg/errors"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
	"github.com/psyconnect/psyconnect-api/pkg/security"
)

// AdminCredentials is the single operator login, configured rather than
// stored. An empty email disables the admin surface.
type AdminCredentials struct {
	Email    string
	Password string
}

// Service issues tokens for the three surfaces. Patients self-register;
// psychiatrist accounts are provisioned by the operator; the admin is a
// configured credential pair.
type Service struct {
	accounts repository.AccountRepository
	hasher   security.PasswordHasher
	jwt      auth.JWTService
	admin    AdminCredentials
	logger   *logger.Logger
}

func NewService(accounts repository.AccountRepository, hasher security.PasswordHasher,
	jwt auth.JWTService, admin AdminCredentials, logger *logger.Logger) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		jwt:      jwt,
		admin:    admin,
		logger:   logger,
	}
}

// SignupPatient registers a patient account and returns a logged-in token.
func (s *Service) SignupPatient(ctx context.Context, req *model.PatientSignupRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("an account with this email already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check account email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("password does not meet requirements", err)
	}

	account := &model.Account{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         model.RolePatient,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// A concurrent signup can slip past the pre-check and land on the
		// unique email constraint instead.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with this email already exists", err)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("patient account created", "email", email)
	return s.issueToken(account.ID, account.Email, account.Role)
}

// Login authenticates any of the three surfaces. The configured admin
// credential pair is checked first; everything else resolves through the
// accounts table.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if s.isAdmin(email, req.Password) {
		return s.issueToken(uuid.Nil, email, model.RoleAdmin)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(errors.New("invalid email or password"))
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(errors.New("invalid email or password"))
	}

	return s.issueToken(account.ID, account.Email, account.Role)
}

func (s *Service) isAdmin(email, password string) bool {
	if s.admin.Email == "" {
		return false
	}
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(strings.ToLower(s.admin.Email))) == 1
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return emailMatch && passwordMatch
}

func (s *Service) issueToken(userID uuid.UUID, email string, role model.Role) (*model.TokenResponse, error) {
	token, err := s.jwt.GenerateAccessToken(userID, email, role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.TokenResponse{AccessToken: token, Role: role}, nil
}
