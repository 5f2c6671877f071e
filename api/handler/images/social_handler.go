package images

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/database/models"
)

type commentResponse struct {
	ID        uint   `json:"id"`
	ImageID   uint   `json:"image_id"`
	UserID    uint   `json:"user_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

func toComment(comment *models.Comment) commentResponse {
	return commentResponse{
		ID:        comment.ID,
		ImageID:   comment.ImageID,
		UserID:    comment.UserID,
		Text:      comment.Text,
		CreatedAt: comment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// AddComment attaches a comment to a visible image.
// @Summary      Add comment
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        id       path      integer            true  "image id"
// @Param        request  body      addCommentRequest  true  "comment text"
// @Success      201      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Failure      404      {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.gallery.AddComment(middleware.CurrentUserID(c), imageID, req.Text)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, toComment(comment))
}

// ListComments lists an image's comments, oldest first.
// @Summary      List comments
// @Tags         images
// @Produce      json
// @Param        id   path      integer  true  "image id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	comments, err := h.gallery.ListComments(middleware.CurrentUserID(c), imageID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	items := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, toComment(comment))
	}
	common.RespondSuccess(c, items)
}

// DeleteComment removes a comment written by the caller or on the caller's
// image.
// @Summary      Delete comment
// @Tags         images
// @Produce      json
// @Param        id         path      integer  true  "image id"
// @Param        commentId  path      integer  true  "comment id"
// @Success      200        {object}  common.Response
// @Failure      400        {object}  common.Response
// @Failure      401        {object}  common.Response
// @Failure      403        {object}  common.Response
// @Failure      404        {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/comments/{commentId} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	commentID, err := pathID(c, "commentId")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := h.gallery.DeleteComment(middleware.CurrentUserID(c), commentID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "comment deleted", nil)
}

// Like records the caller's like on a visible image.
// @Summary      Like image
// @Tags         images
// @Produce      json
// @Param        id   path      integer  true  "image id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/like [post]
func (h *Handler) Like(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := h.gallery.Like(middleware.CurrentUserID(c), imageID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "image liked", nil)
}

// Unlike withdraws the caller's like.
// @Summary      Remove like
// @Tags         images
// @Produce      json
// @Param        id   path      integer  true  "image id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/like [delete]
func (h *Handler) Unlike(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := h.gallery.Unlike(middleware.CurrentUserID(c), imageID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "like removed", nil)
}

// CountLikes reports how many likes an image has.
// @Summary      Count likes
// @Tags         images
// @Produce      json
// @Param        id   path      integer  true  "image id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/likes [get]
func (h *Handler) CountLikes(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	count, err := h.gallery.CountLikes(middleware.CurrentUserID(c), imageID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, gin.H{"likes": count})
}
