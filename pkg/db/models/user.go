package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// User represents the canonical identity entity for clients, professionals
// and administrators. RatingCount/RatingSum carry the professional's
// aggregate score; both stay zero for other roles.
type User struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	FirstName    string          `gorm:"column:first_name;not null"`
	LastName     string          `gorm:"column:last_name;not null"`
	Phone        *string         `gorm:"column:phone"`
	Role         enums.ActorRole `gorm:"column:role;type:text;not null;default:'client'"`
	Locale       string          `gorm:"column:locale;not null;default:'en'"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	RatingCount  int             `gorm:"column:rating_count;not null;default:0"`
	RatingSum    int             `gorm:"column:rating_sum;not null;default:0"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// RatingAverage returns the professional's mean stars, zero when unrated.
func (u User) RatingAverage() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return float64(u.RatingSum) / float64(u.RatingCount)
}
