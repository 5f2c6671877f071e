package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/utils"
)

// TokenPair bundles an access token with the refresh token issued next to it.
type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// TokenConfig holds the signing material and lifetimes.
type TokenConfig struct {
	Secret           []byte
	ExpiresIn        time.Duration
	RefreshExpiresIn time.Duration
}

// JWTService issues and validates HS256 access tokens. Refresh tokens are
// opaque random strings; the login service tracks them.
type JWTService struct {
	config TokenConfig
}

// NewJWTService builds the service from the application configuration.
func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long, got %d", len(cfg.JWTSecret))
	}

	return &JWTService{
		config: TokenConfig{
			Secret:           []byte(cfg.JWTSecret),
			ExpiresIn:        cfg.JWTExpiresIn,
			RefreshExpiresIn: cfg.JWTRefreshExpiry,
		},
	}, nil
}

// NewJWTServiceWithConfig is a constructor for tests.
func NewJWTServiceWithConfig(config TokenConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateTokens issues a fresh access and refresh token pair for the user.
func (s *JWTService) GenerateTokens(userID uint, email string) (*TokenPair, error) {
	accessToken, accessTokenExpiry, err := s.GenerateAccessToken(userID, email)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshTokenExpiry, err := s.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:        accessToken,
		AccessTokenExpiry:  accessTokenExpiry,
		RefreshToken:       refreshToken,
		RefreshTokenExpiry: refreshTokenExpiry,
	}, nil
}

// GenerateAccessToken issues only the access token.
func (s *JWTService) GenerateAccessToken(userID uint, email string) (string, time.Time, error) {
	if len(s.config.Secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret is not initialized")
	}

	expiry := time.Now().Add(s.config.ExpiresIn)
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"type":    "access",
		"exp":     expiry.Unix(),
		"iat":     time.Now().Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	return token, expiry, nil
}

// GenerateRefreshToken issues an opaque refresh token with its expiry.
func (s *JWTService) GenerateRefreshToken() (string, time.Time, error) {
	token, err := utils.GenerateRandomToken(64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return token, time.Now().Add(s.config.RefreshExpiresIn), nil
}

// RefreshTokenTTL returns the configured refresh token lifetime.
func (s *JWTService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshExpiresIn
}

// ParseAccessToken validates an access token and returns the user ID it was
// issued for.
func (s *JWTService) ParseAccessToken(tokenString string) (uint, error) {
	if len(s.config.Secret) == 0 {
		return 0, errors.New("JWT secret is not initialized")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.config.Secret, nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, errors.New("invalid token claims")
	}

	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return 0, errors.New("token is not an access token")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, errors.New("token has no valid user_id claim")
	}

	return uint(userID), nil
}
