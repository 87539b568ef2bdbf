package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProviderType string

const (
	ProviderEmail     ProviderType = "email"
	ProviderGoogle    ProviderType = "google"
	ProviderApple     ProviderType = "apple"
	ProviderMicrosoft ProviderType = "microsoft"
)

// Provider is a linked authentication method for a user: the implicit "email"
// provider created at registration, or an external OAuth identity. Uniqueness
// per (UserID, Type) is enforced by the repository's serialized upsert, not by
// a database constraint.
type Provider struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index;not null" json:"user_id"`
	User         *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Type         ProviderType   `gorm:"size:50;default:'email'" json:"type"`
	AccessToken  string         `gorm:"type:text" json:"-"`
	RefreshToken string         `gorm:"type:text" json:"-"`
	Active       bool           `gorm:"default:false" json:"active"`
	Profile      datatypes.JSON `json:"profile,omitempty"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// PublicProvider hides ids, tokens and soft-delete bookkeeping when a provider
// row rides along inside a user payload.
type PublicProvider struct {
	Type      ProviderType `json:"type"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (p *Provider) Public() PublicProvider {
	return PublicProvider{
		Type:      p.Type,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
