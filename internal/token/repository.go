package token

import (
	"time"

	"identityapi/internal/models"
	"identityapi/internal/utils"

	"gorm.io/gorm"
)

// EmailVerificationTTL bounds how long a freshly issued verification token can
// be redeemed.
const EmailVerificationTTL = 24 * time.Hour

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateEmailVerificationToken issues a single-use token for the user. When tx
// is non-nil the insert joins the caller's transaction, so user creation and
// token issuance commit or roll back together.
func (r *Repository) CreateEmailVerificationToken(tx *gorm.DB, userID uint) (*models.Token, error) {
	db := r.db
	if tx != nil {
		db = tx
	}

	value, err := utils.GenerateTokenValue()
	if err != nil {
		return nil, err
	}

	t := &models.Token{
		UserID:    userID,
		Value:     value,
		Type:      models.TokenEmailVerification,
		ExpiresAt: time.Now().Add(EmailVerificationTTL),
	}

	if err := db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// FindValid returns the token matching value and type if it has not been
// consumed or expired. Expired and spent tokens surface as ErrRecordNotFound.
func (r *Repository) FindValid(value string, tokenType models.TokenType) (*models.Token, error) {
	var t models.Token
	err := r.db.
		Where("value = ? AND type = ?", value, tokenType).
		Where("consumed_at IS NULL").
		Where("expires_at > ?", time.Now()).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Consume(t *models.Token) error {
	now := time.Now()
	t.ConsumedAt = &now
	return r.db.Model(t).Update("consumed_at", now).Error
}

// DeleteExpired removes tokens past their expiry. Run periodically from main.
func (r *Repository) DeleteExpired() (int64, error) {
	result := r.db.Where("expires_at < ?", time.Now()).Delete(&models.Token{})
	return result.RowsAffected, result.Error
}
