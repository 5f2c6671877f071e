package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/database/models"
	"github.com/hayeon-dev/ai-gallery/database/repo/accounts"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	cryptopackage "github.com/hayeon-dev/ai-gallery/utils/crypto"
)

// LoginResult carries the authenticated user and the issued token pair.
type LoginResult struct {
	User               *models.User
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// RefreshResult carries the rotated token pair.
type RefreshResult struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// refreshSession is the cache payload a refresh token maps to.
type refreshSession struct {
	UserID uint `json:"user_id"`
}

// LoginService authenticates credentials and manages refresh token rotation.
type LoginService struct {
	accountsRepo *accounts.Repository
	jwtService   *JWTService
	cache        cache.Provider
}

func NewLoginService(accountsRepo *accounts.Repository, jwtService *JWTService, cacheProvider cache.Provider) *LoginService {
	return &LoginService{
		accountsRepo: accountsRepo,
		jwtService:   jwtService,
		cache:        cacheProvider,
	}
}

// ValidateCredentials checks the email and password pair. An unknown email
// and a wrong password are indistinguishable to the caller.
func (s *LoginService) ValidateCredentials(email, password string) (*models.User, bool, error) {
	user, err := s.accountsRepo.GetByEmail(email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, false, nil
	}

	ok, err := cryptopackage.ComparePasswordAndHash(password, user.Password)
	if err != nil {
		return nil, false, fmt.Errorf("password comparison failed: %w", err)
	}

	return user, ok, nil
}

// Login authenticates the user and issues a token pair. Deactivated accounts
// cannot log in.
func (s *LoginService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, valid, err := s.ValidateCredentials(email, password)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, errs.ErrInvalidCredsPair
	}
	if !user.IsActive {
		return nil, errs.ErrUserInactive
	}

	tokenPair, err := s.jwtService.GenerateTokens(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.storeRefreshToken(ctx, tokenPair.RefreshToken, user.ID); err != nil {
		return nil, err
	}

	return &LoginResult{
		User:               user,
		AccessToken:        tokenPair.AccessToken,
		AccessTokenExpiry:  tokenPair.AccessTokenExpiry,
		RefreshToken:       tokenPair.RefreshToken,
		RefreshTokenExpiry: tokenPair.RefreshTokenExpiry,
	}, nil
}

// Refresh rotates the refresh token and issues a new access token. The old
// refresh token becomes invalid immediately.
func (s *LoginService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var session refreshSession
	if err := s.cache.Get(ctx, cache.RefreshTokenKey(refreshToken), &session); err != nil {
		if cache.IsCacheMiss(err) {
			return nil, errs.ErrInvalidCredsPair
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	user, err := s.accountsRepo.GetByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, errs.ErrUserInactive
	}

	if err := s.cache.Delete(ctx, cache.RefreshTokenKey(refreshToken)); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	tokenPair, err := s.jwtService.GenerateTokens(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	if err := s.storeRefreshToken(ctx, tokenPair.RefreshToken, user.ID); err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:        tokenPair.AccessToken,
		AccessTokenExpiry:  tokenPair.AccessTokenExpiry,
		RefreshToken:       tokenPair.RefreshToken,
		RefreshTokenExpiry: tokenPair.RefreshTokenExpiry,
	}, nil
}

// Logout revokes a refresh token.
func (s *LoginService) Logout(ctx context.Context, refreshToken string) error {
	return s.cache.Delete(ctx, cache.RefreshTokenKey(refreshToken))
}

func (s *LoginService) storeRefreshToken(ctx context.Context, token string, userID uint) error {
	session := refreshSession{UserID: userID}
	if err := s.cache.Set(ctx, cache.RefreshTokenKey(token), session, s.jwtService.RefreshTokenTTL()); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}
