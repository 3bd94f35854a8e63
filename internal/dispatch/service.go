package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/logger"
	"github.com/serviplace/serviplace-backend/pkg/metrics"
)

const (
	defaultInterval  = 5 * time.Second
	defaultBatchSize = 20
	queueCapacity    = 256
	jobName          = "dispatch-sweep"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier fans a committed assignment out to connected parties.
type Notifier interface {
	OrderUpdated(ctx context.Context, order *models.Order, event *models.StatusEvent)
}

// NopNotifier discards dispatch notifications.
type NopNotifier struct{}

func (NopNotifier) OrderUpdated(context.Context, *models.Order, *models.StatusEvent) {}

// ServiceParams configure the dispatch service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Logger    *logger.Logger
	Notifier  Notifier
	Lock      Lock
	Metrics   *metrics.JobMetrics
	Interval  time.Duration
	BatchSize int
}

// Service simulates the external assignment process: it picks an active
// professional for each submitted order and advances it to negotiating.
type Service struct {
	repo      Repository
	tx        txRunner
	logg      *logger.Logger
	notifier  Notifier
	lock      Lock
	metrics   *metrics.JobMetrics
	interval  time.Duration
	batchSize int
	queue     chan uuid.UUID
}

// NewService builds a dispatch service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	notifier := params.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	lock := params.Lock
	if lock == nil {
		lock = NopLock{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{
		repo:      params.Repo,
		tx:        params.Tx,
		logg:      params.Logger,
		notifier:  notifier,
		lock:      lock,
		metrics:   params.Metrics,
		interval:  interval,
		batchSize: batchSize,
		queue:     make(chan uuid.UUID, queueCapacity),
	}, nil
}

// Enqueue hands a freshly submitted order to the worker without blocking the
// caller. A full queue is not an error: the sweep picks the order up.
func (s *Service) Enqueue(orderID uuid.UUID) {
	select {
	case s.queue <- orderID:
	default:
	}
}

// Run processes queued orders and sweeps for stragglers until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "dispatch worker context canceled")
			return ctx.Err()
		case orderID := <-s.queue:
			if _, err := s.Assign(ctx, orderID); err != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, orderID.String()), "dispatch assignment failed", err)
			}
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "dispatch lock acquire failed", err)
		return
	}
	if !locked {
		return
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "dispatch lock release failed", relErr)
		}
	}()

	start := time.Now()
	orders, err := s.repo.ListDispatchableOrders(ctx, s.batchSize)
	if err != nil {
		s.logg.Error(ctx, "dispatch sweep query failed", err)
		s.metrics.IncFailure(jobName)
		return
	}
	for _, order := range orders {
		if _, err := s.Assign(ctx, order.ID); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "dispatch assignment failed", err)
		}
	}
	s.metrics.ObserveDuration(jobName, time.Since(start))
	s.metrics.IncSuccess(jobName)
}

// Assign drives one order from submitted through searching to negotiating,
// creating the lead assignment along the way. Safe to replay: an order in
// searching resumes there, anything further along conflicts.
func (s *Service) Assign(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		order *models.Order
		last  *models.StatusEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		switch order.Status {
		case enums.OrderStatusSubmitted:
			if err := s.advance(ctx, repo, order, enums.OrderStatusSubmitted, enums.OrderStatusSearching, &last); err != nil {
				return err
			}
		case enums.OrderStatusSearching:
			// Resuming a sweep that found no professional last time.
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not waiting for assignment")
		}

		professional, err := repo.FindAvailableProfessional(ctx)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "no professional available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find professional")
		}

		assignment := &models.OrderAssignment{
			OrderID:        order.ID,
			ProfessionalID: professional.ID,
			IsLead:         true,
			Status:         enums.AssignmentStatusAssigned,
		}
		if _, err := repo.CreateAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		order.Assignments = append(order.Assignments, *assignment)

		return s.advance(ctx, repo, order, enums.OrderStatusSearching, enums.OrderStatusNegotiating, &last)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderUpdated(ctx, order, last)
	return order, nil
}

func (s *Service) advance(ctx context.Context, repo Repository, order *models.Order, from, to enums.OrderStatus, last **models.StatusEvent) error {
	rows, err := repo.UpdateOrderStatus(ctx, order.ID, from, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	event := &models.StatusEvent{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		ActorRole:  enums.ActorRoleSystem,
	}
	if err := repo.AppendStatusEvent(ctx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status event")
	}

	order.Status = to
	*last = event
	return nil
}
