package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleTenant   = "TENANT"
	RoleLandlord = "LANDLORD"
	RoleAdmin    = "ADMIN"

	AccessTokenCookie = "accessToken"
)

// User is the authenticated caller attached to the request context.
type User struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (u *User) HasRole(roles ...string) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Credentials is what the store knows about a login identity.
type Credentials struct {
	UserID       string
	PasswordHash string
	Role         string
	IsActive     bool
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	HashPassword(password string) (string, error)
}

type RepositoryAPI interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	GetCredentialsByID(ctx context.Context, userID string) (*Credentials, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID, role string) (string, error)
	GenerateRefreshToken(userID, role string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTokenTTL() time.Duration
}

type contextKey string

const contextUserKey contextKey = "auth_user"

func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(contextUserKey).(*User)
	return user, ok && user != nil
}
