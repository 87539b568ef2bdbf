package models

import "time"

type TokenType string

const (
	TokenEmailVerification TokenType = "email_verification"
)

// Token is a single-use credential scoped to a user. A token is spendable while
// ConsumedAt is nil and ExpiresAt is in the future.
type Token struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Value      string     `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Type       TokenType  `gorm:"size:50;not null" json:"type"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (t *Token) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *Token) Consumed() bool {
	return t.ConsumedAt != nil
}
