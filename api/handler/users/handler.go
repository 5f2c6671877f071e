package users

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/database/models"
	svcaccounts "github.com/hayeon-dev/ai-gallery/internal/accounts"
	svccredits "github.com/hayeon-dev/ai-gallery/internal/credits"
)

// Handler serves profile and credit endpoints.
type Handler struct {
	accounts *svcaccounts.Service
	credits  *svccredits.Service
}

func NewHandler(accounts *svcaccounts.Service, credits *svccredits.Service) *Handler {
	return &Handler{accounts: accounts, credits: credits}
}

type profileResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	DisplayName  string `json:"display_name"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profile_image,omitempty"`
	Credits      uint   `json:"credits"`
	IsActive     bool   `json:"is_active"`
}

func toProfile(user *models.User) profileResponse {
	return profileResponse{
		ID:           user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		Bio:          user.Bio,
		ProfileImage: user.ProfileImage,
		Credits:      user.Credits,
		IsActive:     user.IsActive,
	}
}

// Me returns the caller's profile.
// @Summary      Get own profile
// @Tags         users
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, err := h.accounts.Get(middleware.CurrentUserID(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toProfile(user))
}

type updateProfileRequest struct {
	DisplayName  *string `json:"display_name" binding:"omitempty,max=100"`
	Bio          *string `json:"bio" binding:"omitempty,max=500"`
	ProfileImage *string `json:"profile_image" binding:"omitempty,max=255"`
}

// UpdateMe applies a partial profile update.
// @Summary      Update own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body      updateProfileRequest  true  "fields to update"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Failure      404      {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/me [patch]
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.accounts.UpdateProfile(middleware.CurrentUserID(c), svcaccounts.ProfileUpdate{
		DisplayName:  req.DisplayName,
		Bio:          req.Bio,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toProfile(user))
}

// DeactivateMe soft-deactivates the caller's account.
// @Summary      Deactivate own account
// @Tags         users
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/me [delete]
func (h *Handler) DeactivateMe(c *gin.Context) {
	if err := h.accounts.Deactivate(middleware.CurrentUserID(c)); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "account deactivated", nil)
}

// Search finds users the caller is not yet friends with.
// @Summary      Search users not yet befriended
// @Tags         users
// @Produce      json
// @Param        q    query     string  false  "name or email fragment"
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/search [get]
func (h *Handler) Search(c *gin.Context) {
	users, err := h.accounts.Search(middleware.CurrentUserID(c), c.Query("q"), 50)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	results := make([]profileResponse, 0, len(users))
	for _, user := range users {
		results = append(results, toProfile(user))
	}
	common.RespondSuccess(c, results)
}

// CreditBalance returns the caller's ledger balance.
// @Summary      Get credit balance
// @Tags         credits
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/me/credits [get]
func (h *Handler) CreditBalance(c *gin.Context) {
	balance, err := h.credits.Balance(middleware.CurrentUserID(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"balance": balance})
}

type topUpRequest struct {
	Amount uint `json:"amount" binding:"required,min=1,max=1000"`
}

// TopUp credits the caller's balance through the ledger. There is no payment
// flow; the amount is taken at face value.
// @Summary      Top up credits
// @Tags         credits
// @Accept       json
// @Produce      json
// @Param        request  body      topUpRequest  true  "top-up request"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/me/credits/topup [post]
func (h *Handler) TopUp(c *gin.Context) {
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	userID := middleware.CurrentUserID(c)
	if err := h.credits.Credit(userID, req.Amount, "top-up"); err != nil {
		common.RespondWithError(c, err)
		return
	}

	balance, err := h.credits.Balance(userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"balance": balance})
}

type creditEntryResponse struct {
	ID        uint   `json:"id"`
	Amount    uint   `json:"amount"`
	Direction string `json:"direction"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

// CreditHistory lists the caller's ledger entries, newest first.
// @Summary      List credit ledger entries
// @Tags         credits
// @Produce      json
// @Param        page       query     integer  false  "page number"
// @Param        page_size  query     integer  false  "page size"
// @Success      200        {object}  common.Response
// @Failure      401        {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/me/credits/history [get]
func (h *Handler) CreditHistory(c *gin.Context) {
	page, pageSize := common.PageParams(c)

	entries, total, err := h.credits.History(middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	items := make([]creditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, creditEntryResponse{
			ID:        entry.ID,
			Amount:    entry.Amount,
			Direction: string(entry.Direction),
			Reason:    entry.Reason,
			CreatedAt: entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	common.RespondSuccess(c, common.Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}
