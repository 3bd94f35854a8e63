package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating captures the one-time score a client leaves on a completed order.
// The unique index on order_id turns a second submission into a conflict.
type Rating struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_ratings_order"`
	ClientID       uuid.UUID `gorm:"column:client_id;type:uuid;not null"`
	ProfessionalID uuid.UUID `gorm:"column:professional_id;type:uuid;not null;index"`
	Stars          int       `gorm:"column:stars;not null"`
	Comment        *string   `gorm:"column:comment"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
