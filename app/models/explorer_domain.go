package models

import "time"

// ExplorerDomain is a custom domain alias of an explorer.
type ExplorerDomain struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExplorerID uint      `gorm:"not null;index" json:"explorer_id"`
	Domain     string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"domain" validate:"required,fqdn"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
