package dispatch

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/logger"
)

type stubDispatchRepo struct {
	order        *models.Order
	professional *models.User
	assignments  []models.OrderAssignment
	events       []models.StatusEvent
}

func (s *stubDispatchRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubDispatchRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubDispatchRepo) ListDispatchableOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if s.order != nil && (s.order.Status == enums.OrderStatusSubmitted || s.order.Status == enums.OrderStatusSearching) {
		return []models.Order{*s.order}, nil
	}
	return nil, nil
}

func (s *stubDispatchRepo) FindAvailableProfessional(ctx context.Context) (*models.User, error) {
	if s.professional == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.professional, nil
}

func (s *stubDispatchRepo) CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) (*models.OrderAssignment, error) {
	assignment.ID = uuid.New()
	s.assignments = append(s.assignments, *assignment)
	return assignment, nil
}

func (s *stubDispatchRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	if s.order == nil || s.order.Status != from {
		return 0, nil
	}
	s.order.Status = to
	return 1, nil
}

func (s *stubDispatchRepo) AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	event.ID = uuid.New()
	event.Seq = int64(len(s.events) + 1)
	s.events = append(s.events, *event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubDispatchNotifier struct {
	calls int
	last  *models.StatusEvent
}

func (s *stubDispatchNotifier) OrderUpdated(ctx context.Context, order *models.Order, event *models.StatusEvent) {
	s.calls++
	s.last = event
}

func newTestService(t *testing.T, repo *stubDispatchRepo, notifier Notifier) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       stubTxRunner{},
		Logger:   logger.New(logger.Options{}),
		Notifier: notifier,
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestAssignAdvancesToNegotiating(t *testing.T) {
	proID := uuid.New()
	repo := &stubDispatchRepo{
		order:        &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusSubmitted},
		professional: &models.User{ID: proID, Role: enums.ActorRolePro, IsActive: true},
	}
	notifier := &stubDispatchNotifier{}
	svc := newTestService(t, repo, notifier)

	order, err := svc.Assign(context.Background(), repo.order.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.Status != enums.OrderStatusNegotiating {
		t.Fatalf("expected negotiating got %s", order.Status)
	}
	if len(repo.assignments) != 1 || !repo.assignments[0].IsLead || repo.assignments[0].ProfessionalID != proID {
		t.Fatalf("expected lead assignment got %+v", repo.assignments)
	}
	if len(repo.events) != 2 {
		t.Fatalf("expected 2 system events got %d", len(repo.events))
	}
	for _, event := range repo.events {
		if event.ActorRole != enums.ActorRoleSystem || event.ActorUserID != nil {
			t.Fatalf("expected system actor got %+v", event)
		}
	}
	if repo.events[0].ToStatus != enums.OrderStatusSearching || repo.events[1].ToStatus != enums.OrderStatusNegotiating {
		t.Fatalf("unexpected transition order %+v", repo.events)
	}
	if notifier.calls != 1 || notifier.last == nil || notifier.last.ToStatus != enums.OrderStatusNegotiating {
		t.Fatalf("expected one notification with final event got %d", notifier.calls)
	}
}

func TestAssignResumesFromSearching(t *testing.T) {
	repo := &stubDispatchRepo{
		order:        &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusSearching},
		professional: &models.User{ID: uuid.New(), Role: enums.ActorRolePro, IsActive: true},
	}
	svc := newTestService(t, repo, nil)

	order, err := svc.Assign(context.Background(), repo.order.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.Status != enums.OrderStatusNegotiating {
		t.Fatalf("expected negotiating got %s", order.Status)
	}
	if len(repo.events) != 1 || repo.events[0].FromStatus != enums.OrderStatusSearching {
		t.Fatalf("expected single searching->negotiating event got %+v", repo.events)
	}
}

func TestAssignConflictsPastSearching(t *testing.T) {
	repo := &stubDispatchRepo{
		order:        &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusNegotiating},
		professional: &models.User{ID: uuid.New(), Role: enums.ActorRolePro, IsActive: true},
	}
	svc := newTestService(t, repo, nil)

	_, err := svc.Assign(context.Background(), repo.order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestAssignNoProfessionalAvailable(t *testing.T) {
	repo := &stubDispatchRepo{
		order: &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusSubmitted},
	}
	notifier := &stubDispatchNotifier{}
	svc := newTestService(t, repo, notifier)

	_, err := svc.Assign(context.Background(), repo.order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict got %v", err)
	}
	if notifier.calls != 0 {
		t.Fatal("no notification expected on failure")
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	repo := &stubDispatchRepo{}
	svc := newTestService(t, repo, nil)

	for i := 0; i < queueCapacity+10; i++ {
		svc.Enqueue(uuid.New())
	}
}
