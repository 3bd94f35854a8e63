package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

// AuditLog is an append-only record of administrative actions, kept separate
// from the per-order status event log.
type AuditLog struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorUserID uuid.UUID         `gorm:"column:actor_user_id;type:uuid;not null;index"`
	Action      enums.AuditAction `gorm:"column:action;type:text;not null"`
	EntityType  string            `gorm:"column:entity_type;not null"`
	EntityID    uuid.UUID         `gorm:"column:entity_id;type:uuid;not null;index"`
	Before      types.JSONMap     `gorm:"column:before;type:jsonb"`
	After       types.JSONMap     `gorm:"column:after;type:jsonb"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
