package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Order is the aggregate root for one requested service instance.
type Order struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID         uuid.UUID          `gorm:"column:client_id;type:uuid;not null;index"`
	ServiceType      enums.ServiceType  `gorm:"column:service_type;type:text;not null"`
	Status           enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'draft'"`
	FloorPrice       int                `gorm:"column:floor_price;not null"`
	FinalPrice       *int               `gorm:"column:final_price"`
	Location         string             `gorm:"column:location;not null"`
	ScheduledStartAt *time.Time         `gorm:"column:scheduled_start_at"`
	Detail           *OrderDetail       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignments      []OrderAssignment  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEvents     []StatusEvent      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Offers           []NegotiationOffer `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
