package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hayeon-dev/ai-gallery/cache"
	"github.com/hayeon-dev/ai-gallery/config"
	"github.com/hayeon-dev/ai-gallery/database/models"
	galleryrepo "github.com/hayeon-dev/ai-gallery/database/repo/gallery"
	socialrepo "github.com/hayeon-dev/ai-gallery/database/repo/social"
	"github.com/hayeon-dev/ai-gallery/internal/errs"
	"github.com/hayeon-dev/ai-gallery/storage"
	"github.com/hayeon-dev/ai-gallery/utils"
)

// Upload describes an incoming image.
type Upload struct {
	Title        string
	Description  string
	Visibility   models.Visibility
	OriginalName string
	MimeType     string
	Size         int64
	File         io.ReadSeeker
}

// Service owns the image lifecycle and every visibility decision. Blob bytes
// go through the storage factory; reads go through the cache first.
type Service struct {
	repo       *galleryrepo.Repository
	socialRepo *socialrepo.Repository
	storage    *storage.Factory
	cache      cache.Provider
	cfg        *config.Config
}

func NewService(repo *galleryrepo.Repository, socialRepo *socialrepo.Repository, storageFactory *storage.Factory, cacheProvider cache.Provider, cfg *config.Config) *Service {
	return &Service{
		repo:       repo,
		socialRepo: socialRepo,
		storage:    storageFactory,
		cache:      cacheProvider,
		cfg:        cfg,
	}
}

// CanView decides whether viewer may see the image: owners always can,
// public is open, friends-only needs a friendship edge owner -> viewer.
func (s *Service) CanView(viewerID uint, img *models.Image) (bool, error) {
	if img.UserID == viewerID {
		return true, nil
	}
	switch img.Visibility {
	case models.VisibilityPublic:
		return true, nil
	case models.VisibilityFriends:
		return s.socialRepo.EdgeExists(img.UserID, viewerID)
	default:
		return false, nil
	}
}

// Create stores the blob and the image record. The blob is removed again if
// the record cannot be written.
func (s *Service) Create(ctx context.Context, userID uint, upload Upload) (*models.Image, error) {
	if upload.Visibility == "" {
		upload.Visibility = models.VisibilityPublic
	}
	if !upload.Visibility.Valid() {
		return nil, fmt.Errorf("invalid visibility: %s", upload.Visibility)
	}
	if upload.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	width, height := probeDimensions(upload.File)

	identifier := utils.NewIdentifier()
	provider := s.storage.Default()

	if err := provider.SaveWithContext(ctx, identifier, upload.File); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	img := &models.Image{
		Identifier:      identifier,
		Title:           upload.Title,
		Description:     upload.Description,
		Visibility:      upload.Visibility,
		OriginalName:    upload.OriginalName,
		MimeType:        upload.MimeType,
		FileSize:        upload.Size,
		Width:           width,
		Height:          height,
		StorageProvider: provider.Name(),
		UserID:          userID,
	}

	if err := s.repo.Create(img); err != nil {
		if delErr := provider.DeleteWithContext(ctx, identifier); delErr != nil {
			zap.L().Warn("failed to clean up orphaned blob",
				zap.String("identifier", identifier), zap.Error(delErr))
		}
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	return img, nil
}

// probeDimensions decodes just the image header. Unknown formats yield zero
// dimensions rather than an error.
func probeDimensions(file io.ReadSeeker) (int, int) {
	cfg, _, err := image.DecodeConfig(file)
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return 0, 0
	}
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

// Get returns an image the viewer may see.
func (s *Service) Get(viewerID, imageID uint) (*models.Image, error) {
	img, err := s.repo.GetByID(imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	visible, err := s.CanView(viewerID, img)
	if err != nil {
		return nil, fmt.Errorf("failed to check visibility: %w", err)
	}
	if !visible {
		// Invisible images are indistinguishable from absent ones.
		return nil, errs.ErrNotFound
	}

	return img, nil
}

// GetData returns the raw bytes of an image the viewer may see, serving
// repeat reads from the cache.
func (s *Service) GetData(ctx context.Context, viewerID uint, identifier string) (*models.Image, []byte, error) {
	img, err := s.repo.GetByIdentifier(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errs.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get image: %w", err)
	}

	visible, err := s.CanView(viewerID, img)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check visibility: %w", err)
	}
	if !visible {
		return nil, nil, errs.ErrNotFound
	}

	var data []byte
	if err := s.cache.Get(ctx, cache.ImageKey(identifier), &data); err == nil {
		return img, data, nil
	} else if !cache.IsCacheMiss(err) {
		zap.L().Warn("image cache read failed", zap.Error(err))
	}

	provider, err := s.storage.Get(img.StorageProvider)
	if err != nil {
		return nil, nil, err
	}

	rs, err := provider.GetWithContext(ctx, identifier)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image blob: %w", err)
	}
	if closer, ok := rs.(io.Closer); ok {
		defer closer.Close()
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, rs); err != nil {
		return nil, nil, fmt.Errorf("failed to read image blob: %w", err)
	}
	data = buf.Bytes()

	if int64(len(data)) <= s.cfg.CacheMaxImageMB*1024*1024 {
		if err := s.cache.Set(ctx, cache.ImageKey(identifier), data, s.cfg.CacheImageTTL); err != nil {
			zap.L().Warn("image cache write failed", zap.Error(err))
		}
	}

	return img, data, nil
}

// Delete removes an image, its blob and its cache entry. Owner only.
func (s *Service) Delete(ctx context.Context, userID, imageID uint) error {
	img, err := s.repo.GetByID(imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("failed to get image: %w", err)
	}
	if img.UserID != userID {
		return errs.ErrForbidden
	}

	if err := s.repo.Delete(img); err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}

	_ = s.cache.Delete(ctx, cache.ImageKey(img.Identifier))

	provider, err := s.storage.Get(img.StorageProvider)
	if err == nil {
		if err := provider.DeleteWithContext(ctx, img.Identifier); err != nil {
			zap.L().Warn("failed to delete image blob",
				zap.String("identifier", img.Identifier), zap.Error(err))
		}
	}

	return nil
}

// UpdateVisibility flips an owned image between public and friends-only.
func (s *Service) UpdateVisibility(userID, imageID uint, visibility models.Visibility) (*models.Image, error) {
	if !visibility.Valid() {
		return nil, fmt.Errorf("invalid visibility: %s", visibility)
	}

	if err := s.repo.UpdateVisibility(imageID, userID, visibility); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update visibility: %w", err)
	}

	return s.Get(userID, imageID)
}

// Feed lists everything the viewer may see, newest first.
func (s *Service) Feed(viewerID uint, page, pageSize int) ([]*models.Image, int64, error) {
	return s.repo.ListVisible(viewerID, page, pageSize)
}

// ListUser lists one user's images filtered down to the viewer's access.
func (s *Service) ListUser(viewerID, ownerID uint, page, pageSize int) ([]*models.Image, int64, error) {
	if viewerID == ownerID {
		return s.repo.ListByUser(ownerID, page, pageSize)
	}

	friends, err := s.socialRepo.EdgeExists(ownerID, viewerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to check friendship: %w", err)
	}
	return s.repo.ListByUserVisible(ownerID, friends, page, pageSize)
}

// ListFriendImages lists images uploaded by the viewer's friends.
func (s *Service) ListFriendImages(viewerID uint, page, pageSize int) ([]*models.Image, int64, error) {
	return s.repo.ListFriendImages(viewerID, page, pageSize)
}

// --- comments ---

// AddComment attaches a comment to an image the viewer may see.
func (s *Service) AddComment(viewerID, imageID uint, text string) (*models.Comment, error) {
	if text == "" {
		return nil, fmt.Errorf("comment text is required")
	}

	if _, err := s.Get(viewerID, imageID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ImageID: imageID,
		UserID:  viewerID,
		Text:    text,
	}
	if err := s.repo.CreateComment(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns the comments on an image the viewer may see.
func (s *Service) ListComments(viewerID, imageID uint) ([]*models.Comment, error) {
	if _, err := s.Get(viewerID, imageID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(imageID)
}

// DeleteComment removes a comment. The comment author and the image owner
// may delete it.
func (s *Service) DeleteComment(userID, commentID uint) error {
	comment, err := s.repo.GetCommentByID(commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("failed to get comment: %w", err)
	}

	if comment.UserID != userID {
		img, err := s.repo.GetByID(comment.ImageID)
		if err != nil {
			return fmt.Errorf("failed to get image: %w", err)
		}
		if img.UserID != userID {
			return errs.ErrForbidden
		}
	}

	return s.repo.DeleteComment(comment)
}

// --- likes ---

// Like records one like per user per image.
func (s *Service) Like(viewerID, imageID uint) error {
	if _, err := s.Get(viewerID, imageID); err != nil {
		return err
	}

	liked, err := s.repo.HasLiked(imageID, viewerID)
	if err != nil {
		return fmt.Errorf("failed to check like: %w", err)
	}
	if liked {
		return errs.ErrAlreadyLiked
	}

	if err := s.repo.CreateLike(&models.Like{ImageID: imageID, UserID: viewerID}); err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}
	return nil
}

// Unlike removes the viewer's like.
func (s *Service) Unlike(viewerID, imageID uint) error {
	if err := s.repo.DeleteLike(imageID, viewerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("failed to remove like: %w", err)
	}
	return nil
}

// CountLikes returns the like total for an image the viewer may see.
func (s *Service) CountLikes(viewerID, imageID uint) (int64, error) {
	if _, err := s.Get(viewerID, imageID); err != nil {
		return 0, err
	}
	return s.repo.CountLikes(imageID)
}
