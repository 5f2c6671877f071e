package friends

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/database/models"
	svcsocial "github.com/hayeon-dev/ai-gallery/internal/social"
)

// Handler serves the friend request negotiation endpoints.
type Handler struct {
	social *svcsocial.Service
}

func NewHandler(social *svcsocial.Service) *Handler {
	return &Handler{social: social}
}

type requestResponse struct {
	ID         uint   `json:"id"`
	SenderID   uint   `json:"sender_id"`
	ReceiverID uint   `json:"receiver_id"`
	Status     string `json:"status"`
}

func toRequest(request *models.FriendRequest) requestResponse {
	return requestResponse{
		ID:         request.ID,
		SenderID:   request.SenderID,
		ReceiverID: request.ReceiverID,
		Status:     string(request.Status),
	}
}

type sendRequestBody struct {
	UserID uint `json:"user_id" binding:"required"`
}

// SendRequest opens (or auto-accepts) a friend request.
// @Summary      Send friend request
// @Tags         friends
// @Accept       json
// @Produce      json
// @Param        request  body      sendRequestBody  true  "receiver"
// @Success      201      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Failure      404      {object}  common.Response
// @Failure      409      {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/friends/requests [post]
func (h *Handler) SendRequest(c *gin.Context) {
	var req sendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.social.SendRequest(middleware.CurrentUserID(c), req.UserID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondCreated(c, gin.H{
		"request":       toRequest(outcome.Request),
		"auto_accepted": outcome.AutoAccepted,
	})
}

// Accept accepts a pending request addressed to the caller.
// @Summary      Accept friend request
// @Tags         friends
// @Produce      json
// @Param        id   path      integer  true  "request id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      403  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/friends/requests/{id}/accept [post]
func (h *Handler) Accept(c *gin.Context) {
	requestID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := h.social.Accept(middleware.CurrentUserID(c), requestID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toRequest(request))
}

// Reject rejects a pending request addressed to the caller.
// @Summary      Reject friend request
// @Tags         friends
// @Produce      json
// @Param        id   path      integer  true  "request id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      403  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/friends/requests/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	requestID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := h.social.Reject(middleware.CurrentUserID(c), requestID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toRequest(request))
}

type friendResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// ListFriends lists the caller's friends.
// @Summary      List friends
// @Tags         friends
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/friends [get]
func (h *Handler) ListFriends(c *gin.Context) {
	friends, err := h.social.ListFriends(middleware.CurrentUserID(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	items := make([]friendResponse, 0, len(friends))
	for _, friend := range friends {
		items = append(items, friendResponse{
			ID:          friend.ID,
			Email:       friend.Email,
			DisplayName: friend.DisplayName,
		})
	}
	common.RespondSuccess(c, items)
}

// ListIncoming lists pending requests addressed to the caller.
// @Summary      List incoming friend requests
// @Tags         friends
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/friends/requests/incoming [get]
func (h *Handler) ListIncoming(c *gin.Context) {
	h.listRequests(c, h.social.ListIncoming)
}

// ListOutgoing lists pending requests the caller sent.
// @Summary      List outgoing friend requests
// @Tags         friends
// @Produce      json
// @Success      200  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/friends/requests/outgoing [get]
func (h *Handler) ListOutgoing(c *gin.Context) {
	h.listRequests(c, h.social.ListOutgoing)
}

func (h *Handler) listRequests(c *gin.Context, list func(uint) ([]*models.FriendRequest, error)) {
	requests, err := list(middleware.CurrentUserID(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	items := make([]requestResponse, 0, len(requests))
	for _, request := range requests {
		items = append(items, toRequest(request))
	}
	common.RespondSuccess(c, items)
}

func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(id), err
}
