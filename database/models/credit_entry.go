package models

import "time"

type CreditDirection string

const (
	CreditDirectionDebit  CreditDirection = "debit"
	CreditDirectionCredit CreditDirection = "credit"
)

// CreditEntry is one immutable row of the append-only credit ledger.
// Entries are only ever inserted; there is no update or delete path.
type CreditEntry struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	UserID    uint            `gorm:"index:idx_credit_user;not null"`
	Amount    uint            `gorm:"not null"`
	Direction CreditDirection `gorm:"type:varchar(10);not null"`
	Reason    string          `gorm:"size:255;not null"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}
