package identity

import (
	"context"

	"github.com/bissquit/job-garden/internal/domain"
)

// UserFilter narrows admin user listings.
type UserFilter struct {
	Role    *domain.Role
	Flagged *bool
	Limit   int
	Offset  int
}

// ProfileUpdate holds optional profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	ResumeURL *string
}

// Repository defines the interface for identity data operations.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.User, error)
	SetRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	SetVerified(ctx context.Context, id string, verified bool) (*domain.User, error)
	SetFlagged(ctx context.Context, id string, flagged bool) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}
