package images

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	svcgallery "github.com/hayeon-dev/ai-gallery/internal/gallery"
)

// Handler serves the gallery endpoints: uploads, feeds, the blob route,
// comments and likes.
type Handler struct {
	gallery *svcgallery.Service
	cfg     *config.Config
}

func NewHandler(gallery *svcgallery.Service, cfg *config.Config) *Handler {
	return &Handler{gallery: gallery, cfg: cfg}
}

type imageResponse struct {
	ID          uint   `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Visibility  string `json:"visibility"`
	MimeType    string `json:"mime_type"`
	FileSize    int64  `json:"file_size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	UserID      uint   `json:"user_id"`
	CreatedAt   string `json:"created_at"`
}

func toImage(img *models.Image) imageResponse {
	return imageResponse{
		ID:          img.ID,
		Identifier:  img.Identifier,
		Title:       img.Title,
		Description: img.Description,
		Visibility:  string(img.Visibility),
		MimeType:    img.MimeType,
		FileSize:    img.FileSize,
		Width:       img.Width,
		Height:      img.Height,
		UserID:      img.UserID,
		CreatedAt:   img.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toImagePage(images []*models.Image, total int64, page, pageSize int) common.Page {
	items := make([]imageResponse, 0, len(images))
	for _, img := range images {
		items = append(items, toImage(img))
	}
	return common.Page{Items: items, Total: total, Page: page, PageSize: pageSize}
}

// Upload stores a new image and its metadata.
// @Summary      Upload image
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        file         formData  file    true   "image file"
// @Param        title        formData  string  true   "title"
// @Param        description  formData  string  false  "description"
// @Param        visibility   formData  string  false  "public or friends"
// @Success      201          {object}  common.Response
// @Failure      400          {object}  common.Response
// @Failure      401          {object}  common.Response
// @Failure      413          {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/upload [post]
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "file is required")
		return
	}

	maxSize := int64(h.cfg.UploadMaxSizeMB) << 20
	if maxSize > 0 && fileHeader.Size > maxSize {
		common.RespondError(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	visibility := models.Visibility(c.DefaultPostForm("visibility", string(models.VisibilityPublic)))
	if !visibility.Valid() {
		common.RespondError(c, http.StatusBadRequest, "visibility must be 'public' or 'friends'")
		return
	}
	if c.PostForm("title") == "" {
		common.RespondError(c, http.StatusBadRequest, "title is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "failed to open uploaded file")
		return
	}
	defer file.Close()

	img, err := h.gallery.Create(c.Request.Context(), middleware.CurrentUserID(c), svcgallery.Upload{
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Visibility:   visibility,
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		File:         file,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	common.RespondCreated(c, toImage(img))
}

// Feed pages through every image the caller may see.
// @Summary      List images visible to the caller
// @Tags         images
// @Produce      json
// @Param        page       query     integer  false  "page number"
// @Param        page_size  query     integer  false  "page size"
// @Success      200        {object}  common.Response
// @Failure      401        {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images [get]
func (h *Handler) Feed(c *gin.Context) {
	page, pageSize := common.PageParams(c)
	images, total, err := h.gallery.Feed(middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toImagePage(images, total, page, pageSize))
}

// FriendFeed pages through friends' images.
// @Summary      List friends' images
// @Tags         images
// @Produce      json
// @Param        page       query     integer  false  "page number"
// @Param        page_size  query     integer  false  "page size"
// @Success      200        {object}  common.Response
// @Failure      401        {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/friends [get]
func (h *Handler) FriendFeed(c *gin.Context) {
	page, pageSize := common.PageParams(c)
	images, total, err := h.gallery.ListFriendImages(middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toImagePage(images, total, page, pageSize))
}

// ListByUser pages through one user's images, filtered by what the caller
// may see.
// @Summary      List a user's images visible to the caller
// @Tags         images
// @Produce      json
// @Param        id         path      integer  true   "user id"
// @Param        page       query     integer  false  "page number"
// @Param        page_size  query     integer  false  "page size"
// @Success      200        {object}  common.Response
// @Failure      400        {object}  common.Response
// @Failure      401        {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/users/{id}/images [get]
func (h *Handler) ListByUser(c *gin.Context) {
	ownerID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid user id")
		return
	}

	page, pageSize := common.PageParams(c)
	images, total, err := h.gallery.ListUser(middleware.CurrentUserID(c), ownerID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toImagePage(images, total, page, pageSize))
}

// Get returns one image's metadata.
// @Summary      Get image metadata
// @Tags         images
// @Produce      json
// @Param        id   path      integer  true  "image id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	img, err := h.gallery.Get(middleware.CurrentUserID(c), imageID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toImage(img))
}

// GetData streams the blob bytes.
// @Summary      Serve image bytes
// @Tags         images
// @Produce      octet-stream
// @Param        identifier  path  string  true  "image identifier"
// @Success      200
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/i/{identifier} [get]
func (h *Handler) GetData(c *gin.Context) {
	identifier := c.Param("identifier")

	img, data, err := h.gallery.GetData(c.Request.Context(), middleware.CurrentUserID(c), identifier)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, img.MimeType, data)
}

// Delete removes an image the caller owns, blob included.
// @Summary      Delete image
// @Tags         images
// @Produce      json
// @Param        id   path      integer  true  "image id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      403  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := h.gallery.Delete(c.Request.Context(), middleware.CurrentUserID(c), imageID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "image deleted", nil)
}

type updateVisibilityRequest struct {
	Visibility string `json:"visibility" binding:"required"`
}

// UpdateVisibility switches an image between public and friends-only.
// @Summary      Change image visibility
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        id       path      integer                  true  "image id"
// @Param        request  body      updateVisibilityRequest  true  "new visibility"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response
// @Failure      401      {object}  common.Response
// @Failure      403      {object}  common.Response
// @Failure      404      {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/images/{id}/visibility [patch]
func (h *Handler) UpdateVisibility(c *gin.Context) {
	imageID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid image id")
		return
	}

	var req updateVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !models.Visibility(req.Visibility).Valid() {
		common.RespondError(c, http.StatusBadRequest, "visibility must be 'public' or 'friends'")
		return
	}

	img, err := h.gallery.UpdateVisibility(middleware.CurrentUserID(c), imageID, models.Visibility(req.Visibility))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toImage(img))
}

func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(id), err
}
