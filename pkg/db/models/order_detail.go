package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// OrderDetail holds the service-specific parameters captured at creation.
// Exactly the columns matching the order's service type are populated.
type OrderDetail struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`

	// Cleaning.
	SurfaceM2 *int             `gorm:"column:surface_m2"`
	CleanType *enums.CleanType `gorm:"column:clean_type;type:text"`
	TeamType  *enums.TeamType  `gorm:"column:team_type;type:text"`

	// Cooking.
	Guests *int `gorm:"column:guests"`

	// Childcare.
	Children *int `gorm:"column:children"`
	Hours    *int `gorm:"column:hours"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
