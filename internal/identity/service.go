// Package identity manages accounts, credentials, sessions and roles.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// TokenPair is an access token with its rotating refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticator issues and validates session tokens.
type Authenticator interface {
	GenerateTokens(ctx context.Context, user *domain.User) (*TokenPair, error)
	// ValidateAccessToken returns the subject and the role claim. The role
	// claim reflects issue time and must not be used for authorization.
	ValidateAccessToken(ctx context.Context, token string) (string, domain.Role, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error)
	RevokeRefreshToken(ctx context.Context, refreshToken string) error
	Type() string
}

// PasswordHasher is the credential-verification capability.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, encoded string) (bool, error)
}

// UserCreatedHandler is notified after a successful registration.
type UserCreatedHandler interface {
	OnUserCreated(ctx context.Context, user *domain.User) error
}

// Service implements identity business logic.
type Service struct {
	repo          Repository
	authenticator Authenticator
	hasher        PasswordHasher
	onUserCreated UserCreatedHandler
}

// NewService creates a new identity service. onUserCreated may be nil.
func NewService(repo Repository, authenticator Authenticator, hasher PasswordHasher, onUserCreated UserCreatedHandler) *Service {
	return &Service{
		repo:          repo,
		authenticator: authenticator,
		hasher:        hasher,
		onUserCreated: onUserCreated,
	}
}

// RegisterInput contains registration data.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// LoginInput contains login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// NormalizeEmail trims and lower-cases an address. Uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user. Role defaults to candidate and may only be
// candidate or employer.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleCandidate
	}
	if !role.IsSelfAssignable() {
		return nil, ErrInvalidRoleTransition
	}

	email := NormalizeEmail(input.Email)

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.onUserCreated != nil {
		if err := s.onUserCreated.OnUserCreated(ctx, user); err != nil {
			ctxlog.FromContext(ctx).Warn("user created hook failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	return user, nil
}

// Login authenticates a user and issues tokens.
func (s *Service) Login(ctx context.Context, input LoginInput) (*domain.User, *TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.authenticator.GenerateTokens(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	return user, tokens, nil
}

// RefreshTokens rotates a refresh token.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return s.authenticator.RefreshTokens(ctx, refreshToken)
}

// Logout revokes a refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.authenticator.RevokeRefreshToken(ctx, refreshToken)
}

// ValidateToken validates an access token and returns the user's id and
// current persisted role. A deleted user's token is rejected.
func (s *Service) ValidateToken(ctx context.Context, token string) (string, domain.Role, error) {
	userID, _, err := s.authenticator.ValidateAccessToken(ctx, token)
	if err != nil {
		return "", "", err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", "", ErrInvalidToken
		}
		return "", "", fmt.Errorf("load token subject: %w", err)
	}

	return user.ID, user.Role, nil
}

// GetUserByID retrieves a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, ErrUserNotFound
	}
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile updates the caller's own profile. The resume URL set here
// is what later submissions snapshot.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error) {
	if !validID(userID) {
		return nil, ErrUserNotFound
	}
	return s.repo.UpdateProfile(ctx, userID, update)
}

// ChangeOwnRole switches the actor between candidate and employer.
// Any other target role, admin included, is an invalid transition.
func (s *Service) ChangeOwnRole(ctx context.Context, actor authz.Actor, role domain.Role) (*domain.User, error) {
	if !role.IsSelfAssignable() {
		return nil, ErrInvalidRoleTransition
	}

	if err := authz.Enforce(ctx, actor, authz.ActionChangeOwnRole, authz.Resource{TargetID: actor.ID}); err != nil {
		return nil, err
	}

	user, err := s.repo.SetRole(ctx, actor.ID, role)
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("role changed",
		"user_id", user.ID,
		"from", actor.Role,
		"to", role,
	)
	return user, nil
}

// ListUsers returns users matching filter. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor authz.Actor, filter UserFilter) ([]domain.User, error) {
	if err := authz.Enforce(ctx, actor, authz.ActionListUsers, authz.Resource{}); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx, filter)
}

// GetUser returns any user. Admin only.
func (s *Service) GetUser(ctx context.Context, actor authz.Actor, id string) (*domain.User, error) {
	target, err := s.loadTarget(ctx, actor, authz.ActionReadUser, id)
	if err != nil {
		return nil, err
	}
	return target, nil
}

// SetUserRole assigns any valid role to another user. Admin only.
func (s *Service) SetUserRole(ctx context.Context, actor authz.Actor, id string, role domain.Role) (*domain.User, error) {
	if _, err := s.loadTarget(ctx, actor, authz.ActionSetUserRole, id); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	return s.repo.SetRole(ctx, id, role)
}

// SetUserVerified toggles the verified flag. Admin only.
func (s *Service) SetUserVerified(ctx context.Context, actor authz.Actor, id string, verified bool) (*domain.User, error) {
	if _, err := s.loadTarget(ctx, actor, authz.ActionVerifyUser, id); err != nil {
		return nil, err
	}
	return s.repo.SetVerified(ctx, id, verified)
}

// SetUserFlagged toggles the moderation flag. Admin only.
func (s *Service) SetUserFlagged(ctx context.Context, actor authz.Actor, id string, flagged bool) (*domain.User, error) {
	if _, err := s.loadTarget(ctx, actor, authz.ActionFlagUser, id); err != nil {
		return nil, err
	}
	return s.repo.SetFlagged(ctx, id, flagged)
}

// DeleteUser removes a non-admin account. Admin accounts are never
// deletable, whoever asks. Postings and applications referencing the user
// are retained.
func (s *Service) DeleteUser(ctx context.Context, actor authz.Actor, id string) error {
	if _, err := s.loadTarget(ctx, actor, authz.ActionDeleteUser, id); err != nil {
		return err
	}

	if err := s.repo.DeleteUserRefreshTokens(ctx, id); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("user deleted", "user_id", id, "by", actor.ID)
	return nil
}

// EnsureAdmin makes sure an admin account with email exists, creating it
// with password if missing and promoting it if it holds another role.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user.IsAdmin() {
			return user, nil
		}
		slog.Info("promoting bootstrap user to admin", "user_id", user.ID)
		return s.repo.SetRole(ctx, user.ID, domain.RoleAdmin)

	case errors.Is(err, ErrUserNotFound):
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user = &domain.User{
			Email:        email,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
			IsVerified:   true,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("create admin: %w", err)
		}
		slog.Info("bootstrap admin created", "user_id", user.ID)
		return user, nil

	default:
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
}

// loadTarget fetches the target user and authorizes action against it.
// The target is loaded first so the admin-protection rule sees its role.
func (s *Service) loadTarget(ctx context.Context, actor authz.Actor, action authz.Action, id string) (*domain.User, error) {
	// Reject non-admins before revealing whether the id exists.
	if err := authz.Enforce(ctx, actor, action, authz.Resource{}); err != nil {
		return nil, err
	}

	if !validID(id) {
		return nil, ErrUserNotFound
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := authz.Enforce(ctx, actor, action, authz.UserResource(target)); err != nil {
		return nil, err
	}
	return target, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
