package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	svcaccounts "github.com/hayeon-dev/ai-gallery/internal/accounts"
	svcauth "github.com/hayeon-dev/ai-gallery/internal/auth"
)

// Handler serves registration and the token endpoints.
type Handler struct {
	accounts *svcaccounts.Service
	login    *svcauth.LoginService
}

func NewHandler(accounts *svcaccounts.Service, login *svcauth.LoginService) *Handler {
	return &Handler{accounts: accounts, login: login}
}

type registerRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken        string    `json:"access_token"`
	AccessTokenExpiry  time.Time `json:"access_token_expiry"`
	RefreshToken       string    `json:"refresh_token"`
	RefreshTokenExpiry time.Time `json:"refresh_token_expiry"`
}

// Register creates a new account and grants the signup credit bonus.
// @Summary      Register account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      registerRequest  true  "registration request"
// @Success      201      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      409      {object}  common.Response
// @Router       /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondCreated(c, gin.H{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"credits":      user.Credits,
	})
}

// Login issues a token pair for valid credentials.
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      loginRequest  true  "login request"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Router       /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.login.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondSuccess(c, tokenResponse{
		AccessToken:        result.AccessToken,
		AccessTokenExpiry:  result.AccessTokenExpiry,
		RefreshToken:       result.RefreshToken,
		RefreshTokenExpiry: result.RefreshTokenExpiry,
	})
}

// Refresh rotates the refresh token and issues a new access token.
// @Summary      Rotate refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  true  "refresh request"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.login.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondSuccess(c, tokenResponse{
		AccessToken:        result.AccessToken,
		AccessTokenExpiry:  result.AccessTokenExpiry,
		RefreshToken:       result.RefreshToken,
		RefreshTokenExpiry: result.RefreshTokenExpiry,
	})
}

// Logout revokes a refresh token.
// @Summary      Log out
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  true  "refresh token to revoke"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Router       /auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.login.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondSuccessMessage(c, "logged out", nil)
}
