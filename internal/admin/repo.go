package admin

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an admin repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ForceOrderStatus writes the status unconditionally. The override path owns
// its own audit trail; no status precondition applies here.
func (r *repository) ForceOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, status, orderID).Error
}

func (r *repository) ForceFinalPrice(ctx context.Context, orderID uuid.UUID, amount int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET final_price = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, orderID).Error
}

func (r *repository) SetUserActive(ctx context.Context, userID uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE users
		SET is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, active, userID).Error
}

func (r *repository) AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Raw(`
		INSERT INTO status_events (id, order_id, seq, from_status, to_status, actor_user_id, actor_role, reason, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM status_events WHERE order_id = ?), ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		RETURNING seq, created_at
	`, event.ID, event.OrderID, event.OrderID, event.FromStatus, event.ToStatus, event.ActorUserID, event.ActorRole, event.Reason).
		Row().Scan(&event.Seq, &event.CreatedAt)
}

func (r *repository) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
