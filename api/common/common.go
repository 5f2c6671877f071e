package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hayeon-dev/ai-gallery/internal/errs"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data,omitempty"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondSuccessMessage sends a success response with message and data.
func RespondSuccessMessage(c *gin.Context, message string, data interface{}) {
	Respond(c, http.StatusOK, "success", message, data)
}

// RespondCreated sends a 201 response with data.
func RespondCreated(c *gin.Context, data interface{}) {
	Respond(c, http.StatusCreated, "success", "", data)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, "error", message, nil)
}

// RespondWithError maps service errors onto HTTP status codes. Unrecognized
// errors become an opaque 500.
func RespondWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrForbidden):
		RespondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, errs.ErrInvalidCredsPair), errors.Is(err, errs.ErrUserInactive):
		RespondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, errs.ErrInsufficientCredits):
		RespondError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, errs.ErrEmailTaken),
		errors.Is(err, errs.ErrAlreadyFriends),
		errors.Is(err, errs.ErrDuplicateRequest),
		errors.Is(err, errs.ErrRequestNotPending),
		errors.Is(err, errs.ErrAlreadyLiked),
		errors.Is(err, errs.ErrInvalidTransition):
		RespondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrSelfRequest), errors.Is(err, errs.ErrInvalidAmount):
		RespondError(c, http.StatusBadRequest, err.Error())
	default:
		zap.L().Error("unhandled request error", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "internal server error")
	}
}

// Page is the standard list envelope.
type Page struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// PageParams reads page/page_size query parameters with sane bounds.
func PageParams(c *gin.Context) (int, int) {
	page := atoiDefault(c.Query("page"), 1)
	pageSize := atoiDefault(c.Query("page_size"), 20)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return def
		}
	}
	return n
}
