package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
	"rms-be/utils"
)

// SignupInput is a citizen registration request.
type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Phone    string `json:"phone" validate:"required,len=10,numeric"`
}

// AuthService handles registration, login and session tokens.
type AuthService struct {
	users     UserStore
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// TokenTTL is how long issued session tokens stay valid.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Signup registers a citizen and returns a session token. Elevated accounts
// are provisioned directly in the user store.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateStruct(in); err != nil {
		return nil, "", err
	}

	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, "", models.ErrEmailTaken
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, "", err
	}

	now := s.now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Phone:     in.Phone,
		Role:      models.RoleCitizen,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.CreateUser(ctx, user); errors.Is(err, models.ErrConflict) {
		return nil, "", models.ErrEmailTaken
	} else if err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks credentials and returns a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, "", models.ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !user.ComparePassword(password) {
		return nil, "", models.ErrBadCredentials
	}
	if !user.IsActive {
		return nil, "", models.ErrAccountDisabled
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a session token to an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	subject, err := utils.ParseToken(s.jwtSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	id, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", models.ErrUnauthorized)
	}

	user, err := s.users.FindUser(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("token user: %w", models.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.ErrAccountDisabled
	}
	return user, nil
}

// Authorities lists the users an issue can be assigned to.
func (s *AuthService) Authorities(ctx context.Context) ([]models.User, error) {
	return s.users.ListUsersByRole(ctx, []models.Role{models.RoleAuthority, models.RoleAdmin}, 20)
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	return utils.GenerateToken(s.jwtSecret, user.ID.Hex(), s.tokenTTL, s.now())
}
