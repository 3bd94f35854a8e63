package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	"github.com/serviplace/serviplace-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  service_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  floor_price INTEGER NOT NULL,
  final_price INTEGER,
  location TEXT NOT NULL,
  scheduled_start_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	details := `
CREATE TABLE IF NOT EXISTS order_details (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  surface_m2 INTEGER,
  clean_type TEXT,
  team_type TEXT,
  guests INTEGER,
  children INTEGER,
  hours INTEGER,
  created_at DATETIME
);`
	assignments := `
CREATE TABLE IF NOT EXISTS order_assignments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  professional_id TEXT NOT NULL,
  is_lead INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'assigned',
  created_at DATETIME,
  updated_at DATETIME
);`
	statusEvents := `
CREATE TABLE IF NOT EXISTS status_events (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
  order_id TEXT NOT NULL,
  seq INTEGER NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  actor_user_id TEXT,
  actor_role TEXT NOT NULL,
  reason TEXT,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (order_id, seq)
);`
	for _, ddl := range []string{orders, details, assignments, statusEvents} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	t.Cleanup(func() {
		for _, table := range []string{"status_events", "order_assignments", "order_details", "orders"} {
			db.Exec("DELETE FROM " + table)
		}
	})
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, clientID uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          uuid.New(),
		ClientID:    clientID,
		ServiceType: enums.ServiceTypeCleaning,
		Status:      status,
		FloorPrice:  120,
		Location:    "Calle Mayor 1",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepoUpdateOrderStatusGuard(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), enums.OrderStatusSubmitted, time.Now().UTC())

	rows, err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusSubmitted, enums.OrderStatusSearching)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// Second writer expecting the old status loses the race.
	rows, err = repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusSubmitted, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	reloaded, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusSearching, reloaded.Status)
}

func TestRepoAppendStatusEventSeq(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, uuid.New(), enums.OrderStatusDraft, time.Now().UTC())
	other := seedOrder(t, db, uuid.New(), enums.OrderStatusDraft, time.Now().UTC())

	for i, to := range []enums.OrderStatus{enums.OrderStatusDraft, enums.OrderStatusSubmitted} {
		event := &models.StatusEvent{
			OrderID:    order.ID,
			FromStatus: enums.OrderStatusDraft,
			ToStatus:   to,
			ActorRole:  enums.ActorRoleClient,
		}
		require.NoError(t, repo.AppendStatusEvent(ctx, event))
		assert.Equal(t, int64(i+1), event.Seq)
	}

	// Seq spaces are per order, not global.
	event := &models.StatusEvent{
		OrderID:    other.ID,
		FromStatus: enums.OrderStatusDraft,
		ToStatus:   enums.OrderStatusDraft,
		ActorRole:  enums.ActorRoleClient,
	}
	require.NoError(t, repo.AppendStatusEvent(ctx, event))
	assert.Equal(t, int64(1), event.Seq)

	events, err := repo.ListStatusEventsSince(ctx, order.ID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, enums.OrderStatusSubmitted, events[0].ToStatus)
}

func TestRepoListClientOrdersPagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	clientID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var newest *models.Order
	for i := 0; i < 3; i++ {
		newest = seedOrder(t, db, clientID, enums.OrderStatusSubmitted, base.Add(time.Duration(i)*time.Minute))
	}
	seedOrder(t, db, uuid.New(), enums.OrderStatusSubmitted, base)

	page, err := repo.ListClientOrders(ctx, clientID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListClientOrders(ctx, clientID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Empty(t, rest.NextCursor)
	assert.NotEqual(t, page.Orders[0].ID, rest.Orders[0].ID)
	assert.NotEqual(t, page.Orders[1].ID, rest.Orders[0].ID)
}
