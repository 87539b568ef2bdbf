package provider

import (
	"fmt"

	"identityapi/internal/database"
	"identityapi/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db    *gorm.DB
	locks *database.KeyedMutex
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:    db,
		locks: database.NewKeyedMutex(),
	}
}

func (r *Repository) FindByUserIDAndType(userID uint, providerType models.ProviderType) (*models.Provider, error) {
	var p models.Provider
	err := r.db.
		Where("user_id = ? AND type = ?", userID, providerType).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetActiveProviders(userID uint) ([]models.Provider, error) {
	var providers []models.Provider
	err := r.db.
		Where("user_id = ? AND active = ?", userID, true).
		Find(&providers).Error
	return providers, err
}

// Upsert inserts or refreshes the provider row for (UserID, Type). The
// read-then-write is serialized per key so concurrent logins for the same
// identity cannot insert duplicate rows.
func (r *Repository) Upsert(data *models.Provider) (*models.Provider, error) {
	unlock := r.locks.Lock(fmt.Sprintf("%d/%s", data.UserID, data.Type))
	defer unlock()

	existing, err := r.FindByUserIDAndType(data.UserID, data.Type)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		if err := r.db.Create(data).Error; err != nil {
			return nil, err
		}
		return data, nil
	}

	updates := map[string]interface{}{
		"access_token":  data.AccessToken,
		"refresh_token": data.RefreshToken,
		"active":        data.Active,
	}
	if len(data.Profile) > 0 {
		updates["profile"] = data.Profile
	}

	if err := r.db.Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// Deactivate flips active off without touching the row otherwise.
func (r *Repository) Deactivate(id uint) (*models.Provider, error) {
	var p models.Provider
	if err := r.db.First(&p, id).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&p).Update("active", false).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&models.Provider{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
