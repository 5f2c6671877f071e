package models

import "gorm.io/gorm"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
)

// Valid reports whether v is one of the known visibility levels.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityFriends
}

type Image struct {
	gorm.Model
	Identifier  string     `gorm:"uniqueIndex:idx_image_identifier;not null"`
	Title       string     `gorm:"not null"`
	Description string
	Visibility  Visibility `gorm:"type:varchar(10);default:'public';not null"`

	OriginalName string
	MimeType     string `gorm:"not null"`
	FileSize     int64  `gorm:"not null"`
	Width        int
	Height       int

	// StorageProvider names the blob backend the bytes were written to.
	StorageProvider string `gorm:"not null"`

	UserID uint `gorm:"index:idx_image_user_created,priority:1"`
	User   User `gorm:"foreignKey:UserID"`

	Comments []Comment `gorm:"foreignKey:ImageID"`
	Likes    []Like    `gorm:"foreignKey:ImageID"`
}

type Comment struct {
	gorm.Model
	ImageID uint   `gorm:"index:idx_comment_image;not null"`
	UserID  uint   `gorm:"not null"`
	Text    string `gorm:"not null"`

	User User `gorm:"foreignKey:UserID"`
}

// Like has at most one row per (image, user) pair, enforced by the
// composite unique index.
type Like struct {
	gorm.Model
	ImageID uint `gorm:"uniqueIndex:idx_like_image_user;not null"`
	UserID  uint `gorm:"uniqueIndex:idx_like_image_user;not null"`

	User User `gorm:"foreignKey:UserID"`
}
