package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex:idx_email;not null"`
	Password     string `json:"-"`
	DisplayName  string `gorm:"not null"`
	Bio          string
	ProfileImage string

	// Credits is the derived balance. It is mutated only through the credit
	// ledger service so that it always equals sum(credits) - sum(debits).
	Credits uint `gorm:"default:0;not null"`

	// Accounts are deactivated, never hard-deleted.
	IsActive bool `gorm:"default:true;not null"`
}
