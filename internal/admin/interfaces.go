package admin

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Repository defines persistence operations for administrative overrides.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ForceOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	ForceFinalPrice(ctx context.Context, orderID uuid.UUID, amount int) error
	SetUserActive(ctx context.Context, userID uuid.UUID, active bool) error
	AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}
