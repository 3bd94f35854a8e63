package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Message is one negotiation chat entry. ClientMessageID makes resubmission
// idempotent: the same (order, client message id) pair always resolves to the
// original row.
type Message struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_messages_order_seq,priority:1;uniqueIndex:idx_messages_order_client_id,priority:1"`
	Seq             int64           `gorm:"column:seq;not null;uniqueIndex:idx_messages_order_seq,priority:2"`
	SenderID        uuid.UUID       `gorm:"column:sender_id;type:uuid;not null"`
	SenderRole      enums.ActorRole `gorm:"column:sender_role;type:text;not null"`
	Content         string          `gorm:"column:content;not null"`
	ClientMessageID *string         `gorm:"column:client_message_id;uniqueIndex:idx_messages_order_client_id,priority:2"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
