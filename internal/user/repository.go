package user

import (
	"errors"
	"strings"
	"time"

	"identityapi/internal/database"
	"identityapi/internal/models"
	"identityapi/internal/provider"
	"identityapi/internal/token"
	"identityapi/internal/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProviderAssertion is an external provider's claim about an identity, as
// produced by an OAuth callback. Email and Provider are required; the caller
// validates email format before handing the assertion over.
type ProviderAssertion struct {
	Provider     models.ProviderType
	Email        string
	FirstName    string
	LastName     string
	Username     string
	AccessToken  string
	RefreshToken string
	Profile      datatypes.JSON
}

type Repository struct {
	db         *gorm.DB
	providers  *provider.Repository
	tokens     *token.Repository
	emailLocks *database.KeyedMutex
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		providers:  provider.NewRepository(db),
		tokens:     token.NewRepository(db),
		emailLocks: database.NewKeyedMutex(),
	}
}

func (r *Repository) GetAll() ([]*models.PublicUser, error) {
	var users []models.User
	if err := r.db.Preload("Providers").Find(&users).Error; err != nil {
		return nil, err
	}

	public := make([]*models.PublicUser, 0, len(users))
	for i := range users {
		public = append(public, users[i].Public())
	}
	return public, nil
}

// Create inserts the user, its companion email provider and, unless the email
// arrives pre-verified, a verification token, all in one transaction. The
// returned string is the token value to deliver out-of-band; it is empty when
// the email was pre-verified.
func (r *Repository) Create(data *models.User) (*models.User, string, error) {
	var tokenValue string

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if data.Password != nil {
			hashed, err := utils.HashPassword(*data.Password)
			if err != nil {
				return err
			}
			data.Password = &hashed
		}

		if err := tx.Create(data).Error; err != nil {
			return err
		}

		emailProvider := models.Provider{
			UserID: data.ID,
			Type:   models.ProviderEmail,
			Active: true,
		}
		if err := tx.Create(&emailProvider).Error; err != nil {
			return err
		}

		if data.EmailVerifiedAt == nil {
			t, err := r.tokens.CreateEmailVerificationToken(tx, data.ID)
			if err != nil {
				return err
			}
			tokenValue = t.Value
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	return data, tokenValue, nil
}

func (r *Repository) FindByID(id uint) (*models.PublicUser, error) {
	u, err := r.FindByIDWithSensitiveColumns(id)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (r *Repository) FindByEmail(email string) (*models.PublicUser, error) {
	u, err := r.FindByEmailWithSensitiveColumns(email)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (r *Repository) FindByUsername(username string) (*models.PublicUser, error) {
	var u models.User
	err := r.db.Preload("Providers").
		Where("username = ?", username).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// FindByIDWithSensitiveColumns returns the full row, password included, for
// internal flows. Handlers must never serialize its result directly.
func (r *Repository) FindByIDWithSensitiveColumns(id uint) (*models.User, error) {
	var u models.User
	err := r.db.Preload("Providers").First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) FindByEmailWithSensitiveColumns(email string) (*models.User, error) {
	var u models.User
	err := r.db.Preload("Providers").
		Where("email = ?", email).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindOrCreateUserByEmail resolves a provider assertion to a local user,
// creating the account on first login, then attaches or refreshes the provider
// link. The whole sequence is serialized per email so two concurrent first
// logins cannot both create the user.
func (r *Repository) FindOrCreateUserByEmail(assertion ProviderAssertion) (*models.PublicUser, error) {
	unlock := r.emailLocks.Lock(strings.ToLower(assertion.Email))
	defer unlock()

	u, err := r.FindByEmailWithSensitiveColumns(assertion.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		// Provider-asserted emails are trusted as verified, so no
		// verification token is issued here.
		now := time.Now()
		created, _, err := r.Create(&models.User{
			Email:           assertion.Email,
			Username:        assertion.Username,
			FirstName:       assertion.FirstName,
			LastName:        assertion.LastName,
			Role:            models.RoleUser,
			EmailVerifiedAt: &now,
		})
		if err != nil {
			return nil, err
		}
		created.Providers = nil
		u = created
	}

	_, err = r.providers.Upsert(&models.Provider{
		UserID:       u.ID,
		Type:         assertion.Provider,
		AccessToken:  assertion.AccessToken,
		RefreshToken: assertion.RefreshToken,
		Active:       true,
		Profile:      assertion.Profile,
	})
	if err != nil {
		return nil, err
	}

	return u.Public(), nil
}

func (r *Repository) SoftDelete(id uint) error {
	result := r.db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RestoreSoftDelete clears deleted_at, bringing the account back into every
// read path. Restore is explicit, never automatic.
func (r *Repository) RestoreSoftDelete(id uint) error {
	result := r.db.Unscoped().
		Model(&models.User{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) VerifyEmail(id uint) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("email_verified_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(id uint, newPassword string) error {
	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	result := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hashed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UpdateAvatar(id uint, url string) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("avatar_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) TouchLastLogin(id uint) error {
	return r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("last_logged_in_at", time.Now()).Error
}
