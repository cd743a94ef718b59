package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserSettings stores the API credentials of a user
type UserSettings struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"uniqueIndex" json:"user_id"`
	APIKeyHash       string         `gorm:"type:char(64);default:''" json:"-"`
	APIKeyPrefix     string         `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt  *time.Time     `json:"api_key_created_at"`
	APIKeyLastUsedAt *time.Time     `json:"api_key_last_used_at"`
	APIKeyRevokedAt  *time.Time     `json:"api_key_revoked_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	apiKeyPrefix       = "bfx_"
	apiKeyEntropy      = 32
	apiKeyDisplayChars = 16
)

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// APIKey is a freshly generated key. Only Hash and Prefix are stored; Raw is
// shown to the user once.
type APIKey struct {
	Raw    string
	Prefix string
	Hash   string
}

// NewAPIKey returns a random "bfx_" key with its display prefix and hash.
func NewAPIKey() (APIKey, error) {
	b := make([]byte, apiKeyEntropy)
	if _, err := rand.Read(b); err != nil {
		return APIKey{}, fmt.Errorf("api key generation failed: %w", err)
	}
	raw := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	return APIKey{Raw: raw, Prefix: raw[:apiKeyDisplayChars], Hash: HashAPIKey(raw)}, nil
}

// HashAPIKey is the lookup hash of a key as sent by a client.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func GetOrCreateUserSettings(db *gorm.DB, userID uint) (*UserSettings, error) {
	us := UserSettings{UserID: userID}
	if err := db.Where(UserSettings{UserID: userID}).FirstOrCreate(&us).Error; err != nil {
		return nil, err
	}
	return &us, nil
}

func (us *UserSettings) HasActiveAPIKey() bool {
	return us != nil && us.APIKeyHash != "" && us.APIKeyRevokedAt == nil
}

// IssueAPIKey replaces the current key and returns the raw secret. The
// caller persists the settings.
func (us *UserSettings) IssueAPIKey() (string, error) {
	key, err := NewAPIKey()
	if err != nil {
		return "", err
	}
	now := time.Now()
	us.APIKeyHash, us.APIKeyPrefix = key.Hash, key.Prefix
	us.APIKeyCreatedAt, us.APIKeyRevokedAt, us.APIKeyLastUsedAt = &now, nil, nil
	return key.Raw, nil
}

func (us *UserSettings) RevokeAPIKey() {
	now := time.Now()
	us.APIKeyHash, us.APIKeyPrefix = "", ""
	us.APIKeyRevokedAt, us.APIKeyLastUsedAt = &now, nil
}
