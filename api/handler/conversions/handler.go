package conversions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	svcconversion "github.com/hayeon-dev/ai-gallery/internal/conversion"
	svccredits "github.com/hayeon-dev/ai-gallery/internal/credits"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

// Handler serves the conversion job endpoints.
type Handler struct {
	conversion *svcconversion.Service
	credits    *svccredits.Service
	cfg        *config.Config
}

func NewHandler(conversion *svcconversion.Service, credits *svccredits.Service, cfg *config.Config) *Handler {
	return &Handler{conversion: conversion, credits: credits, cfg: cfg}
}

// respondChargeError reports a rejected charge with the caller's current
// balance so the client can show what is left; other errors take the common
// mapping.
func (h *Handler) respondChargeError(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrInsufficientCredits) {
		if balance, balErr := h.credits.Balance(middleware.CurrentUserID(c)); balErr == nil {
			common.Respond(c, http.StatusPaymentRequired, "error", err.Error(), gin.H{"balance": balance})
			return
		}
	}
	common.RespondWithError(c, err)
}

type jobResponse struct {
	ID           uint   `json:"id"`
	Status       string `json:"status"`
	Prompt       string `json:"prompt"`
	ModelUsed    string `json:"model_used"`
	ErrorMessage string `json:"error_message,omitempty"`
	Attempts     int    `json:"attempts"`
	CreatedAt    string `json:"created_at"`
}

func toJob(job *models.ConversionJob) jobResponse {
	return jobResponse{
		ID:           job.ID,
		Status:       string(job.Status),
		Prompt:       job.Prompt,
		ModelUsed:    job.ModelUsed,
		ErrorMessage: job.ErrorMessage,
		Attempts:     job.Attempts,
		CreatedAt:    job.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// Submit charges one credit and enqueues a style transfer job.
// @Summary      Submit conversion job
// @Tags         conversions
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData  file    true  "source image"
// @Param        prompt  formData  string  true  "style prompt"
// @Success      201     {object}  common.Response
// @Failure      400     {object}  common.Response
// @Failure      401     {object}  common.Response
// @Failure      402     {object}  common.Response
// @Failure      413     {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/conversions [post]
func (h *Handler) Submit(c *gin.Context) {
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

	prompt := c.PostForm("prompt")
	if prompt == "" {
		common.RespondError(c, http.StatusBadRequest, "prompt is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "failed to open uploaded file")
		return
	}
	defer file.Close()

	job, err := h.conversion.Submit(c.Request.Context(), middleware.CurrentUserID(c), svcconversion.Submission{
		Prompt:   prompt,
		MimeType: fileHeader.Header.Get("Content-Type"),
		File:     file,
	})
	if err != nil {
		h.respondChargeError(c, err)
		return
	}

	common.RespondCreated(c, toJob(job))
}

// Get returns one of the caller's jobs.
// @Summary      Get conversion job
// @Tags         conversions
// @Produce      json
// @Param        id   path      integer  true  "job id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/conversions/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.conversion.Get(middleware.CurrentUserID(c), jobID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, toJob(job))
}

// List pages through the caller's jobs, newest first.
// @Summary      List conversion jobs
// @Tags         conversions
// @Produce      json
// @Param        page       query     integer  false  "page number"
// @Param        page_size  query     integer  false  "page size"
// @Success      200        {object}  common.Response
// @Failure      401        {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/conversions [get]
func (h *Handler) List(c *gin.Context) {
	page, pageSize := common.PageParams(c)

	jobs, total, err := h.conversion.List(middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, toJob(job))
	}
	common.RespondSuccess(c, common.Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Resubmit charges again and requeues a terminal job.
// @Summary      Resubmit terminal job
// @Tags         conversions
// @Produce      json
// @Param        id   path      integer  true  "job id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      402  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Failure      409  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/conversions/{id}/resubmit [post]
func (h *Handler) Resubmit(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.conversion.Resubmit(middleware.CurrentUserID(c), jobID)
	if err != nil {
		h.respondChargeError(c, err)
		return
	}
	common.RespondSuccess(c, toJob(job))
}

// Delete removes a job and its stored blobs.
// @Summary      Delete conversion job
// @Tags         conversions
// @Produce      json
// @Param        id   path      integer  true  "job id"
// @Success      200  {object}  common.Response
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/conversions/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.conversion.Delete(c.Request.Context(), middleware.CurrentUserID(c), jobID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "job deleted", nil)
}

// Result streams the converted image of a completed job.
// @Summary      Download converted image
// @Tags         conversions
// @Produce      octet-stream
// @Param        id  path  integer  true  "job id"
// @Success      200
// @Failure      400  {object}  common.Response
// @Failure      401  {object}  common.Response
// @Failure      404  {object}  common.Response
// @Security     BearerAuth
// @Router       /v1/conversions/{id}/result [get]
func (h *Handler) Result(c *gin.Context) {
	jobID, err := pathID(c, "id")
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "invalid job id")
		return
	}

	data, err := h.conversion.GetResultData(c.Request.Context(), middleware.CurrentUserID(c), jobID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	return uint(id), err
}
