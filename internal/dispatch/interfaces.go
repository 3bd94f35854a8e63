package dispatch

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Repository defines persistence operations for the assignment process.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListDispatchableOrders(ctx context.Context, limit int) ([]models.Order, error)
	FindAvailableProfessional(ctx context.Context) (*models.User, error)
	CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) (*models.OrderAssignment, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error
}
