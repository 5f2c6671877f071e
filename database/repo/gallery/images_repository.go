package gallery

import (
	"github.com/hayeon-dev/ai-gallery/database/models"
	"gorm.io/gorm"
)

// Repository persists gallery images with their comments and likes.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(image *models.Image) error {
	return r.db.Create(image).Error
}

func (r *Repository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.db.First(&image, id).Error
	return &image, err
}

func (r *Repository) GetByIdentifier(identifier string) (*models.Image, error) {
	var image models.Image
	err := r.db.Where("identifier = ?", identifier).First(&image).Error
	return &image, err
}

func (r *Repository) Delete(image *models.Image) error {
	return r.db.Delete(image).Error
}

// UpdateVisibility flips the visibility flag of an owner's image.
func (r *Repository) UpdateVisibility(id, userID uint, visibility models.Visibility) error {
	result := r.db.Model(&models.Image{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("visibility", visibility)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListVisible returns the feed a viewer is allowed to see: all public
// images, the viewer's own images, and friends-only images of users that
// have a friendship edge toward the viewer.
func (r *Repository) ListVisible(viewerID uint, page, pageSize int) ([]*models.Image, int64, error) {
	friendOwners := r.db.Model(&models.Friendship{}).
		Select("user_id").Where("friend_id = ?", viewerID)

	db := r.db.Model(&models.Image{}).Where(
		r.db.Where("visibility = ?", models.VisibilityPublic).
			Or("user_id = ?", viewerID).
			Or("visibility = ? AND user_id IN (?)", models.VisibilityFriends, friendOwners),
	)

	return r.paginate(db, page, pageSize)
}

// ListByUser returns one user's images, newest first.
func (r *Repository) ListByUser(userID uint, page, pageSize int) ([]*models.Image, int64, error) {
	db := r.db.Model(&models.Image{}).Where("user_id = ?", userID)
	return r.paginate(db, page, pageSize)
}

// ListByUserVisible returns one user's images restricted to what a viewer
// may see: public only, or public plus friends-only when includeFriends.
func (r *Repository) ListByUserVisible(userID uint, includeFriends bool, page, pageSize int) ([]*models.Image, int64, error) {
	db := r.db.Model(&models.Image{}).Where("user_id = ?", userID)
	if includeFriends {
		db = db.Where("visibility IN ?", []models.Visibility{models.VisibilityPublic, models.VisibilityFriends})
	} else {
		db = db.Where("visibility = ?", models.VisibilityPublic)
	}
	return r.paginate(db, page, pageSize)
}

// ListFriendImages returns images uploaded by the viewer's friends.
func (r *Repository) ListFriendImages(viewerID uint, page, pageSize int) ([]*models.Image, int64, error) {
	friendIDs := r.db.Model(&models.Friendship{}).
		Select("friend_id").Where("user_id = ?", viewerID)

	db := r.db.Model(&models.Image{}).Where("user_id IN (?)", friendIDs)
	return r.paginate(db, page, pageSize)
}

func (r *Repository) paginate(db *gorm.DB, page, pageSize int) ([]*models.Image, int64, error) {
	var images []*models.Image
	var total int64

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	err := db.Order("created_at desc").Offset(offset).Limit(pageSize).Find(&images).Error
	return images, total, err
}

// --- comments ---

func (r *Repository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *Repository) GetCommentByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.First(&comment, id).Error
	return &comment, err
}

func (r *Repository) ListComments(imageID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.Where("image_id = ?", imageID).Order("created_at asc").Find(&comments).Error
	return comments, err
}

func (r *Repository) DeleteComment(comment *models.Comment) error {
	return r.db.Delete(comment).Error
}

// --- likes ---

func (r *Repository) CreateLike(like *models.Like) error {
	return r.db.Create(like).Error
}

// HasLiked reports whether the user already liked the image.
func (r *Repository) HasLiked(imageID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Like{}).
		Where("image_id = ? AND user_id = ?", imageID, userID).
		Count(&count).Error
	return count > 0, err
}

// DeleteLike removes the user's like; reports gorm.ErrRecordNotFound when
// there was none.
func (r *Repository) DeleteLike(imageID, userID uint) error {
	result := r.db.Where("image_id = ? AND user_id = ?", imageID, userID).
		Delete(&models.Like{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CountLikes(imageID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Like{}).Where("image_id = ?", imageID).Count(&count).Error
	return count, err
}
