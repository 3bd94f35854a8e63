package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/internal/pricing"
	"github.com/serviplace/serviplace-backend/pkg/db"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/fsm"
	"github.com/serviplace/serviplace-backend/pkg/pagination"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier fans a committed order change out to connected parties. Called
// after the transaction commits, never inside it.
type Notifier interface {
	OrderUpdated(ctx context.Context, order *models.Order, event *models.StatusEvent)
}

// Dispatcher hands a freshly submitted order to the assignment process.
type Dispatcher interface {
	Enqueue(orderID uuid.UUID)
}

// NopNotifier discards order updates.
type NopNotifier struct{}

func (NopNotifier) OrderUpdated(context.Context, *models.Order, *models.StatusEvent) {}

// NopDispatcher discards dispatch requests.
type NopDispatcher struct{}

func (NopDispatcher) Enqueue(uuid.UUID) {}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor types.Actor, params pagination.Params) (*OrderList, error)
	Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID, reason *string) (*models.Order, error)
	UpdateStatus(ctx context.Context, actor types.Actor, input UpdateStatusInput) (*models.Order, error)
	Participant(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	oracle     pricing.Oracle
	notifier   Notifier
	dispatcher Dispatcher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, oracle pricing.Oracle, notifier Notifier, dispatcher Dispatcher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if oracle == nil {
		return nil, fmt.Errorf("pricing oracle required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if dispatcher == nil {
		dispatcher = NopDispatcher{}
	}
	return &service{
		repo:       repo,
		tx:         tx,
		oracle:     oracle,
		notifier:   notifier,
		dispatcher: dispatcher,
	}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateOrderInput) (*models.Order, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.ActorRoleClient {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only clients can create orders")
	}
	if !input.ServiceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid service type %q", input.ServiceType))
	}
	if strings.TrimSpace(input.Location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location required")
	}

	params, err := pricingParams(input.ServiceType, input.Detail)
	if err != nil {
		return nil, err
	}
	quote, err := s.oracle.ComputePrice(params)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ClientID:         actor.UserID,
		ServiceType:      input.ServiceType,
		Status:           enums.OrderStatusDraft,
		FloorPrice:       quote.FloorPrice,
		Location:         strings.TrimSpace(input.Location),
		ScheduledStartAt: input.ScheduledStartAt,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		detail := detailModel(order.ID, input.Detail)
		if _, err := repo.CreateOrderDetail(ctx, detail); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order detail")
		}
		order.Detail = detail

		// Creation marker, then the submit edge. Both logged so the event
		// stream starts at the order's birth.
		created := &models.StatusEvent{
			OrderID:     order.ID,
			FromStatus:  enums.OrderStatusDraft,
			ToStatus:    enums.OrderStatusDraft,
			ActorUserID: &actor.UserID,
			ActorRole:   actor.Role,
		}
		if err := repo.AppendStatusEvent(ctx, created); err != nil {
			return wrapSeqWrite(err, "append creation event")
		}

		rows, err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusDraft, enums.OrderStatusSubmitted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit order")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		submitted := &models.StatusEvent{
			OrderID:     order.ID,
			FromStatus:  enums.OrderStatusDraft,
			ToStatus:    enums.OrderStatusSubmitted,
			ActorUserID: &actor.UserID,
			ActorRole:   actor.Role,
		}
		if err := repo.AppendStatusEvent(ctx, submitted); err != nil {
			return wrapSeqWrite(err, "append submit event")
		}

		order.Status = enums.OrderStatusSubmitted
		order.StatusEvents = []models.StatusEvent{*created, *submitted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(order.ID)
	return order, nil
}

func (s *service) Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	// Non-owners get the same 404 as a missing order so order IDs stay
	// unguessable.
	if actor.Role != enums.ActorRoleAdmin && order.ClientID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params pagination.Params) (*OrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListClientOrders(ctx, actor.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID, reason *string) (*models.Order, error) {
	return s.UpdateStatus(ctx, actor, UpdateStatusInput{
		OrderID:  orderID,
		ToStatus: enums.OrderStatusCancelled,
		Reason:   reason,
	})
}

func (s *service) UpdateStatus(ctx context.Context, actor types.Actor, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
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

		if err := authorizeParticipant(actor, order); err != nil {
			return err
		}

		from := order.Status
		if !fsm.IsValidTransition(from, input.ToStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", from, input.ToStatus))
		}

		rows, err := repo.UpdateOrderStatus(ctx, order.ID, from, input.ToStatus)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		event = &models.StatusEvent{
			OrderID:     order.ID,
			FromStatus:  from,
			ToStatus:    input.ToStatus,
			ActorUserID: &actor.UserID,
			ActorRole:   actor.Role,
			Reason:      input.Reason,
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			return wrapSeqWrite(err, "append status event")
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

// Participant resolves the order when userID is its client or an assigned
// professional, and fails with forbidden otherwise.
func (s *service) Participant(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.ClientID == userID {
		return order, nil
	}
	for _, a := range order.Assignments {
		if a.ProfessionalID == userID {
			return order, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this order")
}

func authorizeParticipant(actor types.Actor, order *models.Order) error {
	if order.ClientID == actor.UserID {
		return nil
	}
	for _, a := range order.Assignments {
		if a.ProfessionalID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this order")
}

func pricingParams(serviceType enums.ServiceType, detail DetailInput) (pricing.Params, error) {
	params := pricing.Params{ServiceType: serviceType}
	switch serviceType {
	case enums.ServiceTypeCleaning:
		if detail.SurfaceM2 == nil || detail.CleanType == nil || detail.TeamType == nil {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "cleaning orders require surface_m2, clean_type and team_type")
		}
		params.Cleaning = &pricing.CleaningParams{
			SurfaceM2: *detail.SurfaceM2,
			CleanType: *detail.CleanType,
			TeamType:  *detail.TeamType,
		}
	case enums.ServiceTypeCooking:
		if detail.Guests == nil {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "cooking orders require guests")
		}
		params.Cooking = &pricing.CookingParams{Guests: *detail.Guests}
	case enums.ServiceTypeChildcare:
		if detail.Children == nil || detail.Hours == nil {
			return params, pkgerrors.New(pkgerrors.CodeValidation, "childcare orders require children and hours")
		}
		params.Childcare = &pricing.ChildcareParams{
			Children: *detail.Children,
			Hours:    *detail.Hours,
		}
	}
	return params, nil
}

func detailModel(orderID uuid.UUID, input DetailInput) *models.OrderDetail {
	return &models.OrderDetail{
		OrderID:   orderID,
		SurfaceM2: input.SurfaceM2,
		CleanType: input.CleanType,
		TeamType:  input.TeamType,
		Guests:    input.Guests,
		Children:  input.Children,
		Hours:     input.Hours,
	}
}

// wrapSeqWrite classifies append failures: a lost seq race is a retryable
// conflict, anything else is a dependency failure.
func wrapSeqWrite(err error, msg string) error {
	if db.IsSeqConflict(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent write, retry the request")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
