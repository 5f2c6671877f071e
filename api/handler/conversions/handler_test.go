package conversions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/api/middleware"
	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	creditsrepo "github.com/hayeon-dev/ai-gallery/database/repo/credits"
	jobsrepo "github.com/hayeon-dev/ai-gallery/database/repo/jobs"
	svcconversion "github.com/hayeon-dev/ai-gallery/internal/conversion"
	"github.com/hayeon-dev/ai-gallery/internal/conversion/transform"
	svccredits "github.com/hayeon-dev/ai-gallery/internal/credits"
	"github.com/hayeon-dev/ai-gallery/storage"
)

type stubTransform struct{}

func (stubTransform) Transform(ctx context.Context, req transform.Request) (*transform.Result, error) {
	return &transform.Result{Image: []byte("converted"), MimeType: "image/png", Model: "stub"}, nil
}

func (stubTransform) Name() string { return "stub" }

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB, *svcconversion.Service, *svccredits.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.CreditEntry{}, &models.ConversionJob{}))

	cfg := &config.Config{
		StorageType:      "local",
		StorageLocalPath: t.TempDir(),
		ConversionCost:   1,
		UploadMaxSizeMB:  10,
	}
	storageFactory, err := storage.NewFactory(cfg)
	require.NoError(t, err)

	creditsService := svccredits.NewService(db, creditsrepo.NewRepository(db))
	conversionService := svcconversion.NewService(db, jobsrepo.NewRepository(db), creditsService, storageFactory, stubTransform{}, cfg)
	handler := NewHandler(conversionService, creditsService, cfg)

	router := gin.New()
	authed := router.Group("/", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uint(1))
		c.Next()
	})
	authed.POST("/conversions", handler.Submit)
	authed.POST("/conversions/:id/resubmit", handler.Resubmit)

	return router, db, conversionService, creditsService
}

func multipartSubmission(t *testing.T, prompt string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "source.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("source bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("prompt", prompt))
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

type chargeErrorBody struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
	Data   struct {
		Balance int64 `json:"balance"`
	} `json:"data"`
}

func TestSubmitWithoutCreditsReportsBalance(t *testing.T) {
	router, db, _, _ := newTestRouter(t)
	require.NoError(t, db.Create(&models.User{Email: "broke@example.com", Password: "hash", IsActive: true}).Error)

	body, contentType := multipartSubmission(t, "watercolor")
	req := httptest.NewRequest(http.MethodPost, "/conversions", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp chargeErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, int64(0), resp.Data.Balance)
}

func TestResubmitWithoutCreditsReportsBalance(t *testing.T) {
	router, db, svc, creditsService := newTestRouter(t)
	user := &models.User{Email: "broke@example.com", Password: "hash", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, creditsService.Credit(user.ID, 1, "signup bonus"))

	// Burn the only credit on a submission, then fail the job so it is
	// resubmittable.
	job, err := svc.Submit(context.Background(), user.ID, svcconversion.Submission{
		Prompt: "watercolor",
		File:   bytes.NewReader([]byte("source bytes")),
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.ConversionJob{}).Where("id = ?", job.ID).
		Updates(map[string]interface{}{"status": models.JobStatusFailed, "error_message": "boom"}).Error)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/conversions/%d/resubmit", job.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp chargeErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Data.Balance)
}
