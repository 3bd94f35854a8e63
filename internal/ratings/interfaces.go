package ratings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
)

// Repository defines persistence operations for ratings and the rated
// professional's aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CreateRating(ctx context.Context, rating *models.Rating) (*models.Rating, error)
	FindRatingByOrder(ctx context.Context, orderID uuid.UUID) (*models.Rating, error)
	IncrementProfessionalRating(ctx context.Context, professionalID uuid.UUID, stars int) error
}
