package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Username        string         `gorm:"size:100;index" json:"username"`
	Email           string         `gorm:"size:100;index" json:"email"`
	Password        *string        `gorm:"size:255" json:"-"`
	FirstName       string         `gorm:"size:100" json:"first_name"`
	MiddleName      string         `gorm:"size:100" json:"middle_name,omitempty"`
	LastName        string         `gorm:"size:100" json:"last_name,omitempty"`
	Phone           string         `gorm:"size:30" json:"phone,omitempty"`
	AvatarURL       string         `gorm:"size:500" json:"avatar_url,omitempty"`
	DateOfBirth     *time.Time     `json:"date_of_birth,omitempty"`
	Gender          string         `gorm:"size:20" json:"gender,omitempty"`
	Role            string         `gorm:"size:20;default:'user'" json:"role"`
	EmailVerifiedAt *time.Time     `json:"email_verified_at,omitempty"`
	PhoneVerifiedAt *time.Time     `json:"phone_verified_at,omitempty"`
	LastLoggedInAt  *time.Time     `json:"last_logged_in_at,omitempty"`
	Providers       []Provider     `gorm:"foreignKey:UserID" json:"providers,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// PublicUser is the shape every client-facing read path returns. Password and
// raw verification timestamps are stripped; the timestamps collapse into the
// derived verified flags.
type PublicUser struct {
	ID            uint             `json:"id"`
	Username      string           `json:"username"`
	Email         string           `json:"email"`
	FirstName     string           `json:"first_name"`
	MiddleName    string           `json:"middle_name,omitempty"`
	LastName      string           `json:"last_name,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	AvatarURL     string           `json:"avatar_url,omitempty"`
	DateOfBirth   *time.Time       `json:"date_of_birth,omitempty"`
	Gender        string           `json:"gender,omitempty"`
	Role          string           `json:"role"`
	EmailVerified bool             `json:"email_verified"`
	PhoneVerified bool             `json:"phone_verified"`
	Providers     []PublicProvider `json:"providers"`
}

// Public computes the projection. Every finder goes through this one method so
// sibling queries cannot drift on which columns they hide.
func (u *User) Public() *PublicUser {
	pub := &PublicUser{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		MiddleName:    u.MiddleName,
		LastName:      u.LastName,
		Phone:         u.Phone,
		AvatarURL:     u.AvatarURL,
		DateOfBirth:   u.DateOfBirth,
		Gender:        u.Gender,
		Role:          u.Role,
		EmailVerified: u.EmailVerifiedAt != nil,
		PhoneVerified: u.PhoneVerifiedAt != nil,
		Providers:     make([]PublicProvider, 0, len(u.Providers)),
	}
	for _, p := range u.Providers {
		pub.Providers = append(pub.Providers, p.Public())
	}
	return pub
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
