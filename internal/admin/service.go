package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier fans a committed override out to connected parties.
type Notifier interface {
	OrderUpdated(ctx context.Context, order *models.Order, event *models.StatusEvent)
}

// NopNotifier discards override notifications.
type NopNotifier struct{}

func (NopNotifier) OrderUpdated(context.Context, *models.Order, *models.StatusEvent) {}

// OverrideStatusInput forces an order into a status outside the lifecycle
// rules.
type OverrideStatusInput struct {
	OrderID  uuid.UUID
	ToStatus enums.OrderStatus
	Reason   *string
}

// OverridePriceInput force-sets an order's final price.
type OverridePriceInput struct {
	OrderID uuid.UUID
	Amount  int
	Reason  *string
}

// Service defines the administrative override operations. Every mutation
// writes an AuditLog row in the same transaction.
type Service interface {
	OverrideStatus(ctx context.Context, actor types.Actor, input OverrideStatusInput) (*models.Order, error)
	OverridePrice(ctx context.Context, actor types.Actor, input OverridePriceInput) (*models.Order, error)
	SetUserActive(ctx context.Context, actor types.Actor, userID uuid.UUID, active bool) (*models.User, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier Notifier
}

// NewService builds an admin service with the required dependencies.
func NewService(repo Repository, tx txRunner, notifier Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("admin repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &service{repo: repo, tx: tx, notifier: notifier}, nil
}

// OverrideStatus deliberately skips lifecycle validation: any status, from any
// status. The audit row and the admin-actor status event are the safeguards.
func (s *service) OverrideStatus(ctx context.Context, actor types.Actor, input OverrideStatusInput) (*models.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.ToStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", input.ToStatus))
	}

	var (
		order *models.Order
		event *models.StatusEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		from := order.Status

		if err := repo.ForceOrderStatus(ctx, order.ID, input.ToStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "force order status")
		}

		event = &models.StatusEvent{
			OrderID:     order.ID,
			FromStatus:  from,
			ToStatus:    input.ToStatus,
			ActorUserID: &actor.UserID,
			ActorRole:   enums.ActorRoleAdmin,
			Reason:      input.Reason,
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			if db.IsSeqConflict(err) {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent write, retry the request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status event")
		}

		entry := &models.AuditLog{
			ActorUserID: actor.UserID,
			Action:      enums.AuditActionStatusOverride,
			EntityType:  "order",
			EntityID:    order.ID,
			Before:      types.JSONMap{"status": string(from)},
			After:       types.JSONMap{"status": string(input.ToStatus), "reason": input.Reason},
		}
		if err := repo.CreateAuditLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
		}

		order.Status = input.ToStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderUpdated(ctx, order, event)
	return order, nil
}

func (s *service) OverridePrice(ctx context.Context, actor types.Actor, input OverridePriceInput) (*models.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		before := types.JSONMap{"final_price": order.FinalPrice}
		if err := repo.ForceFinalPrice(ctx, order.ID, input.Amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "force final price")
		}

		entry := &models.AuditLog{
			ActorUserID: actor.UserID,
			Action:      enums.AuditActionPriceOverride,
			EntityType:  "order",
			EntityID:    order.ID,
			Before:      before,
			After:       types.JSONMap{"final_price": input.Amount, "reason": input.Reason},
		}
		if err := repo.CreateAuditLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
		}

		amount := input.Amount
		order.FinalPrice = &amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) SetUserActive(ctx context.Context, actor types.Actor, userID uuid.UUID, active bool) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		user, err = repo.FindUser(ctx, userID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		if err := repo.SetUserActive(ctx, userID, active); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set user active")
		}

		entry := &models.AuditLog{
			ActorUserID: actor.UserID,
			Action:      enums.AuditActionUserActivation,
			EntityType:  "user",
			EntityID:    userID,
			Before:      types.JSONMap{"is_active": user.IsActive},
			After:       types.JSONMap{"is_active": active},
		}
		if err := repo.CreateAuditLog(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit log")
		}

		user.IsActive = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func requireAdmin(actor types.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
