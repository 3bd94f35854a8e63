package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// NegotiationOffer is a proposed price for an order. At most one offer per
// order ever reaches accepted; acceptance is a guarded conditional update.
type NegotiationOffer struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_offers_order_seq,priority:1"`
	Seq        int64             `gorm:"column:seq;not null;uniqueIndex:idx_offers_order_seq,priority:2"`
	OfferedBy  uuid.UUID         `gorm:"column:offered_by;type:uuid;not null"`
	Amount     int               `gorm:"column:amount;not null"`
	Status     enums.OfferStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	AcceptedAt *time.Time        `gorm:"column:accepted_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
