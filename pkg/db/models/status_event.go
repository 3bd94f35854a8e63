package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// StatusEvent is an append-only record of one status transition. Seq is
// monotonic per order; the repo layer exposes no update or delete for it.
type StatusEvent struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_status_events_order_seq,priority:1"`
	Seq         int64             `gorm:"column:seq;not null;uniqueIndex:idx_status_events_order_seq,priority:2"`
	FromStatus  enums.OrderStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus    enums.OrderStatus `gorm:"column:to_status;type:text;not null"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid"`
	ActorRole   enums.ActorRole   `gorm:"column:actor_role;type:text;not null"`
	Reason      *string           `gorm:"column:reason"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
