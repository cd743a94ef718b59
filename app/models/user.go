package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER       = "user"
	ROLE_ADMIN      = "admin"
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

const DefaultDataRetentionLimit = 7

type User struct {
	ID                        uint           `gorm:"primaryKey" json:"id"`
	Name                      string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email                     string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password                  string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                      string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin"`
	Status                    string         `gorm:"type:varchar(50);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	StripeCustomerID          string         `gorm:"type:varchar(191);default:'';index" json:"-"`
	CanTrial                  bool           `gorm:"default:true" json:"can_trial"`
	CanUseDemoPlan            bool           `gorm:"default:false" json:"can_use_demo_plan"`
	CryptoPaymentEnabled      bool           `gorm:"default:false" json:"crypto_payment_enabled"`
	DefaultDataRetentionLimit int            `gorm:"default:7" json:"default_data_retention_limit"`
	Workspaces                []Workspace    `gorm:"foreignKey:UserID" json:"-"`
	CreatedAt                 time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt                 gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:                      username,
		Email:                     email,
		Password:                  pw,
		Role:                      ROLE_USER,
		Status:                    STATUS_ACTIVE,
		CanTrial:                  true,
		DefaultDataRetentionLimit: DefaultDataRetentionLimit,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// HasStripeCustomer reports whether the user is linked to a billing customer.
func (u *User) HasStripeCustomer() bool {
	return u.StripeCustomerID != ""
}
