package models

import (
	"strings"
	"time"
)

// Workspace holds the RPC configuration an explorer indexes from. Names are
// unique per user.
type Workspace struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UserID             uint            `gorm:"not null;index:ux_workspaces_user_name,unique,priority:1" json:"user_id"`
	Name               string          `gorm:"type:varchar(150);not null;index:ux_workspaces_user_name,unique,priority:2" json:"name" validate:"required,max=150"`
	NetworkID          string          `gorm:"type:varchar(64);default:''" json:"network_id"`
	RPCServer          string          `gorm:"type:text;not null" json:"rpc_server" validate:"required,url"`
	Tracing            bool            `gorm:"default:false" json:"tracing"`
	DataRetentionLimit int             `gorm:"default:0" json:"data_retention_limit"`
	Explorer           *Explorer       `gorm:"foreignKey:WorkspaceID" json:"-"`
	RPCHealthCheck     *RPCHealthCheck `gorm:"foreignKey:WorkspaceID" json:"rpc_health_check,omitempty"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultWorkspaceName derives a workspace name from an explorer name when the
// caller did not provide one.
func DefaultWorkspaceName(explorerName string) string {
	name := strings.TrimSpace(explorerName)
	if len(name) > 150 {
		name = name[:150]
	}
	return name
}
