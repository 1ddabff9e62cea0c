package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"talkwire/internal/auth/config"
	"talkwire/internal/auth/domain/model"
	"talkwire/internal/auth/domain/repository"
	"talkwire/internal/shared/eventbus"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHandleTaken         = errors.New("handle is already taken")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidHandleFormat = errors.New("invalid handle format")
	ErrTokenInvalid        = errors.New("token is invalid")
	ErrTokenRevoked        = errors.New("token has been revoked")
)

const maxPasswordLength = 128

// Handles are short url-safe identifiers chosen at signup.
var handleRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{1,31}$`)

// AuthUsecaseInterface defines the contract for authentication use cases.
type AuthUsecaseInterface interface {
	Signup(ctx context.Context, req SignupRequest) (*model.User, string, error)
	Login(ctx context.Context, req LoginRequest) (*model.User, string, error)
	Logout(ctx context.Context, tokenString string) error
	ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error)
	GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error)
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error)
}

// SignupRequest represents the signup request
type SignupRequest struct {
	Handle    string `json:"handle"`
	Password  string `json:"password"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// UpdateProfileRequest carries the mutable profile fields
type UpdateProfileRequest struct {
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// AuthUsecase implements the authentication logic.
type AuthUsecase struct {
	repo     repository.UserRepository
	tokenSvc repository.TokenService
	revoker  repository.TokenRevoker
	bus      eventbus.EventBusInterface
	config   *config.Config
}

// NewAuthUsecase creates a new instance of AuthUsecase. The bus may be nil for
// callers that do not need logout events.
func NewAuthUsecase(
	repo repository.UserRepository,
	tokenSvc repository.TokenService,
	revoker repository.TokenRevoker,
	bus eventbus.EventBusInterface,
	cfg *config.Config,
) *AuthUsecase {
	return &AuthUsecase{
		repo:     repo,
		tokenSvc: tokenSvc,
		revoker:  revoker,
		bus:      bus,
		config:   cfg,
	}
}

func (uc *AuthUsecase) validateHandle(handle string) error {
	if handle == "" {
		return fmt.Errorf("handle is required")
	}
	if !handleRegex.MatchString(handle) {
		return ErrInvalidHandleFormat
	}
	return nil
}

func (uc *AuthUsecase) validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", maxPasswordLength)
	}
	return nil
}

// Signup creates a new user and issues a session credential
func (uc *AuthUsecase) Signup(ctx context.Context, req SignupRequest) (*model.User, string, error) {
	req.Handle = strings.ToLower(strings.TrimSpace(req.Handle))

	if err := uc.validateHandle(req.Handle); err != nil {
		return nil, "", err
	}
	if err := uc.validatePassword(req.Password); err != nil {
		return nil, "", err
	}

	existingUser, err := uc.repo.GetUserByHandle(ctx, req.Handle)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, "", ErrHandleTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Handle:       req.Handle,
		FullName:     strings.TrimSpace(req.FullName),
		AvatarURL:    strings.TrimSpace(req.AvatarURL),
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := uc.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrHandleTaken) {
			return nil, "", ErrHandleTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := uc.tokenSvc.GenerateToken(ctx, user.ID, user.Handle)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user.Sanitized(), token, nil
}

// Login authenticates a user by handle and password
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest) (*model.User, string, error) {
	req.Handle = strings.ToLower(strings.TrimSpace(req.Handle))

	if err := uc.validateHandle(req.Handle); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	user, err := uc.repo.GetUserByHandle(ctx, req.Handle)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := uc.tokenSvc.GenerateToken(ctx, user.ID, user.Handle)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user.Sanitized(), token, nil
}

// Logout revokes the presented credential. Logout with a missing or already invalid
// credential is a no-op so the endpoint stays idempotent.
func (uc *AuthUsecase) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return nil
	}

	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil
	}

	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}

	if err := uc.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	// Realtime connections authenticated by this session are torn down by the
	// subscriber side, so a logged-out user stops receiving pushes immediately.
	if uc.bus != nil {
		uc.bus.PublishAndForget(ctx, eventbus.NewBasicEventWithSource(
			eventbus.EventTypeUserLoggedOut, claims.UserID, "auth_usecase"))
	}

	return nil
}

// ValidateToken validates signature, expiry and the revocation list
func (uc *AuthUsecase) ValidateToken(ctx context.Context, tokenString string) (*repository.Claims, error) {
	claims, err := uc.tokenSvc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	revoked, err := uc.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: an unreachable revocation list must not let a logged-out
		// credential back in.
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// GetUserFromToken validates a token and fetches the associated user
func (uc *AuthUsecase) GetUserFromToken(ctx context.Context, tokenString string) (*model.User, error) {
	claims, err := uc.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	user, err := uc.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user.Sanitized(), nil
}

// GetUserByID retrieves a user by ID
func (uc *AuthUsecase) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return user.Sanitized(), nil
}

// UpdateProfile updates the caller's mutable profile fields
func (uc *AuthUsecase) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error) {
	user, err := uc.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if strings.TrimSpace(req.FullName) != "" {
		user.FullName = strings.TrimSpace(req.FullName)
	}
	if strings.TrimSpace(req.AvatarURL) != "" {
		user.AvatarURL = strings.TrimSpace(req.AvatarURL)
	}

	if err := uc.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user.Sanitized(), nil
}

// Ensure AuthUsecase implements AuthUsecaseInterface
var _ AuthUsecaseInterface = (*AuthUsecase)(nil)
