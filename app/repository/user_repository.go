package repository

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BlockFox/app/models"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	user.Email = strings.TrimSpace(user.Email)
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail matches the address exactly; the column is case sensitive.
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", strings.TrimSpace(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByAPIKeyHash returns the owner of a non-revoked key together with the
// settings row holding it.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}

	var settings models.UserSettings
	err := r.db.
		Where("api_key_hash = ?", hash).
		Where("api_key_revoked_at IS NULL").
		First(&settings).Error
	if err != nil {
		return nil, nil, err
	}
	user, err := r.GetByID(settings.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, &settings, nil
}

func (r *userRepository) SaveSettings(settings *models.UserSettings) error {
	return r.db.Save(settings).Error
}

func (r *userRepository) TouchAPIKeyUsage(settingsID uint) error {
	return r.db.Model(&models.UserSettings{ID: settingsID}).
		UpdateColumn("api_key_last_used_at", time.Now()).Error
}

// ErrTrialConsumed is returned by DisableTrial when the user has no trial left.
var ErrTrialConsumed = errors.New("trial already consumed")

// DisableTrial consumes the one trial a user gets. Of two concurrent callers
// only one flips the flag; the other gets ErrTrialConsumed.
func (r *userRepository) DisableTrial(userID uint) error {
	res := r.db.Model(&models.User{}).
		Where("id = ? AND can_trial = ?", userID, true).
		Update("can_trial", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTrialConsumed
	}
	return nil
}

// RestoreTrial hands back a trial whose billing subscription never came to be.
func (r *userRepository) RestoreTrial(userID uint) error {
	return r.db.Model(&models.User{}).
		Where("id = ? AND can_trial = ?", userID, false).
		Update("can_trial", true).Error
}
