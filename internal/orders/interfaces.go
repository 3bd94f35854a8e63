package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	"github.com/serviplace/serviplace-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderDetail(ctx context.Context, detail *models.OrderDetail) (*models.OrderDetail, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListClientOrders(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error
	ListStatusEventsSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.StatusEvent, error)
	FindAssignments(ctx context.Context, orderID uuid.UUID) ([]models.OrderAssignment, error)
}
