package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

type stubAdminRepo struct {
	order       *models.Order
	user        *models.User
	forcedTo    enums.OrderStatus
	forcedPrice int
	events      []models.StatusEvent
	audits      []models.AuditLog
}

func (s *stubAdminRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubAdminRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubAdminRepo) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubAdminRepo) ForceOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	s.forcedTo = status
	return nil
}

func (s *stubAdminRepo) ForceFinalPrice(ctx context.Context, orderID uuid.UUID, amount int) error {
	s.forcedPrice = amount
	return nil
}

func (s *stubAdminRepo) SetUserActive(ctx context.Context, userID uuid.UUID, active bool) error {
	return nil
}

func (s *stubAdminRepo) AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	event.ID = uuid.New()
	event.Seq = int64(len(s.events) + 1)
	s.events = append(s.events, *event)
	return nil
}

func (s *stubAdminRepo) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = uuid.New()
	s.audits = append(s.audits, *entry)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func adminActor() types.Actor {
	return types.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
}

func TestOverrideStatusSkipsLifecycleRules(t *testing.T) {
	repo := &stubAdminRepo{order: &models.Order{ID: uuid.New(), Status: enums.OrderStatusCompleted}}
	svc, err := NewService(repo, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	// completed is terminal for users; the override path does not care.
	order, err := svc.OverrideStatus(context.Background(), adminActor(), OverrideStatusInput{
		OrderID:  repo.order.ID,
		ToStatus: enums.OrderStatusNegotiating,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.Status != enums.OrderStatusNegotiating {
		t.Fatalf("expected negotiating got %s", order.Status)
	}
	if len(repo.events) != 1 || repo.events[0].ActorRole != enums.ActorRoleAdmin {
		t.Fatalf("expected admin status event got %+v", repo.events)
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != enums.AuditActionStatusOverride {
		t.Fatalf("expected status override audit got %+v", repo.audits)
	}
	if repo.audits[0].Before["status"] != string(enums.OrderStatusCompleted) {
		t.Fatalf("expected before snapshot got %+v", repo.audits[0].Before)
	}
}

func TestOverrideStatusRequiresAdmin(t *testing.T) {
	repo := &stubAdminRepo{order: &models.Order{ID: uuid.New(), Status: enums.OrderStatusSubmitted}}
	svc, _ := NewService(repo, stubTxRunner{}, nil)

	_, err := svc.OverrideStatus(context.Background(), types.Actor{UserID: uuid.New(), Role: enums.ActorRoleClient}, OverrideStatusInput{
		OrderID:  repo.order.ID,
		ToStatus: enums.OrderStatusCancelled,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestOverridePriceAudits(t *testing.T) {
	existing := 100
	repo := &stubAdminRepo{order: &models.Order{ID: uuid.New(), Status: enums.OrderStatusAccepted, FinalPrice: &existing}}
	svc, _ := NewService(repo, stubTxRunner{}, nil)

	order, err := svc.OverridePrice(context.Background(), adminActor(), OverridePriceInput{
		OrderID: repo.order.ID,
		Amount:  999,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.FinalPrice == nil || *order.FinalPrice != 999 {
		t.Fatalf("expected final price 999 got %v", order.FinalPrice)
	}
	if repo.forcedPrice != 999 {
		t.Fatalf("expected forced price 999 got %d", repo.forcedPrice)
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != enums.AuditActionPriceOverride {
		t.Fatalf("expected price override audit got %+v", repo.audits)
	}
	if len(repo.events) != 0 {
		t.Fatal("price override must not write status events")
	}
}

func TestSetUserActiveAudits(t *testing.T) {
	repo := &stubAdminRepo{user: &models.User{ID: uuid.New(), Role: enums.ActorRolePro, IsActive: true}}
	svc, _ := NewService(repo, stubTxRunner{}, nil)

	user, err := svc.SetUserActive(context.Background(), adminActor(), repo.user.ID, false)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if user.IsActive {
		t.Fatal("expected user deactivated")
	}
	if len(repo.audits) != 1 || repo.audits[0].Action != enums.AuditActionUserActivation {
		t.Fatalf("expected activation audit got %+v", repo.audits)
	}
	if repo.audits[0].Before["is_active"] != true || repo.audits[0].After["is_active"] != false {
		t.Fatalf("expected before/after snapshots got %+v %+v", repo.audits[0].Before, repo.audits[0].After)
	}
}
