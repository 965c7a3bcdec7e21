package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/rental-management/internal"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return AuthTokens{}, errors.ErrInvalidCredentials
		}
		return AuthTokens{}, errors.NewInternalError("failed to load credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, errors.ErrInvalidCredentials
	}

	if !creds.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}

	return s.issue(creds.UserID, creds.Role)
}

// RefreshTokens validates a refresh token and rotates both tokens. The role is
// re-read so a changed role takes effect on refresh.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.repo.GetCredentialsByID(ctx, claims.UserID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return AuthTokens{}, errors.ErrInvalidToken
		}
		return AuthTokens{}, errors.NewInternalError("failed to load user", err)
	}
	if !creds.IsActive {
		return AuthTokens{}, errors.ErrUserInactive
	}

	return s.issue(creds.UserID, creds.Role)
}

func (s *Service) issue(userID, role string) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID, role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue token", err)
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID, role)
	if err != nil {
		return AuthTokens{}, errors.NewInternalError("failed to issue token", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenGenerator.AccessTokenTTL().Seconds()),
	}, nil
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type JWTTokenGenerator struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (j *JWTTokenGenerator) AccessTokenTTL() time.Duration {
	return j.accessTTL
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, role string) (string, error) {
	return j.sign(userID, role, j.accessTTL, j.accessSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(userID, role string) (string, error) {
	return j.sign(userID, role, j.refreshTTL, j.refreshSecret)
}

func (j *JWTTokenGenerator) sign(userID, role string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.accessSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.validate(tokenString, j.refreshSecret)
}

func (j *JWTTokenGenerator) validate(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}

	return claims, nil
}
