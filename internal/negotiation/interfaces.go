package negotiation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Repository defines persistence operations for offers, messages and the
// negotiation side of the order row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOffer(ctx context.Context, offerID uuid.UUID) (*models.NegotiationOffer, error)
	CreateOffer(ctx context.Context, offer *models.NegotiationOffer) error
	RejectPendingOffersByUser(ctx context.Context, orderID, userID uuid.UUID) error
	AcceptOfferGuarded(ctx context.Context, offerID uuid.UUID, acceptedAt time.Time) (int64, error)
	RejectOtherPendingOffers(ctx context.Context, orderID, offerID uuid.UUID) error
	LockFinalPrice(ctx context.Context, orderID uuid.UUID, amount int, from, to enums.OrderStatus) (int64, error)
	AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error
	CreateMessage(ctx context.Context, message *models.Message) error
	FindMessageByClientID(ctx context.Context, orderID uuid.UUID, clientMessageID string) (*models.Message, error)
	ListOffersSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.NegotiationOffer, error)
	ListMessagesSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.Message, error)
	ListStatusEventsSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.StatusEvent, error)
}
