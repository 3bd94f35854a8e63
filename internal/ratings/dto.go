package ratings

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
)

// RatingDTO is the transport shape of a submitted rating.
type RatingDTO struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	ClientID       uuid.UUID `json:"client_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Stars          int       `json:"stars"`
	Comment        *string   `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FromModel converts a persisted rating into its transport shape.
func FromModel(r *models.Rating) *RatingDTO {
	if r == nil {
		return nil
	}
	return &RatingDTO{
		ID:             r.ID,
		OrderID:        r.OrderID,
		ClientID:       r.ClientID,
		ProfessionalID: r.ProfessionalID,
		Stars:          r.Stars,
		Comment:        r.Comment,
		CreatedAt:      r.CreatedAt,
	}
}
