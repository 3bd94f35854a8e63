package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// OrderAssignment links an order to a professional candidate. Multiple
// assignments may exist per order; the lead assignment drives negotiation.
type OrderAssignment struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	ProfessionalID uuid.UUID              `gorm:"column:professional_id;type:uuid;not null;index"`
	IsLead         bool                   `gorm:"column:is_lead;not null;default:false"`
	Status         enums.AssignmentStatus `gorm:"column:status;type:text;not null;default:'assigned'"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
