package negotiation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a negotiation repository bound to the provided DB.
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
		Preload("Assignments").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOffer(ctx context.Context, offerID uuid.UUID) (*models.NegotiationOffer, error) {
	var offer models.NegotiationOffer
	err := r.db.WithContext(ctx).
		Where("id = ?", offerID).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// CreateOffer inserts the offer with the next per-order seq; the composite
// unique index turns a seq race into a unique violation. The id is generated
// here so later guarded updates bind the same canonical form the row stores.
func (r *repository) CreateOffer(ctx context.Context, offer *models.NegotiationOffer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Raw(`
		INSERT INTO negotiation_offers (id, order_id, seq, offered_by, amount, status, created_at, updated_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM negotiation_offers WHERE order_id = ?), ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING seq, created_at
	`, offer.ID, offer.OrderID, offer.OrderID, offer.OfferedBy, offer.Amount, enums.OfferStatusPending).
		Row().Scan(&offer.Seq, &offer.CreatedAt)
}

func (r *repository) RejectPendingOffersByUser(ctx context.Context, orderID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE negotiation_offers
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ? AND offered_by = ? AND status = ?
	`, enums.OfferStatusRejected, orderID, userID, enums.OfferStatusPending).Error
}

// AcceptOfferGuarded flips the offer to accepted only while it is still
// pending. Zero rows affected means another acceptance won the race.
func (r *repository) AcceptOfferGuarded(ctx context.Context, offerID uuid.UUID, acceptedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE negotiation_offers
		SET status = ?, accepted_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, enums.OfferStatusAccepted, acceptedAt, offerID, enums.OfferStatusPending)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repository) RejectOtherPendingOffers(ctx context.Context, orderID, offerID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE negotiation_offers
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE order_id = ? AND id <> ? AND status = ?
	`, enums.OfferStatusRejected, orderID, offerID, enums.OfferStatusPending).Error
}

// LockFinalPrice sets the final price and advances the order status in one
// guarded write keyed on the expected current status.
func (r *repository) LockFinalPrice(ctx context.Context, orderID uuid.UUID, amount int, from, to enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET final_price = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, amount, to, orderID, from)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
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

func (r *repository) CreateMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Raw(`
		INSERT INTO messages (id, order_id, seq, sender_id, sender_role, content, client_message_id, created_at)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE order_id = ?), ?, ?, ?, ?, CURRENT_TIMESTAMP)
		RETURNING seq, created_at
	`, message.ID, message.OrderID, message.OrderID, message.SenderID, message.SenderRole, message.Content, message.ClientMessageID).
		Row().Scan(&message.Seq, &message.CreatedAt)
}

func (r *repository) FindMessageByClientID(ctx context.Context, orderID uuid.UUID, clientMessageID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND client_message_id = ?", orderID, clientMessageID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *repository) ListOffersSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.NegotiationOffer, error) {
	var offers []models.NegotiationOffer
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND seq > ?", orderID, sinceSeq).
		Order("seq ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) ListMessagesSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND seq > ?", orderID, sinceSeq).
		Order("seq ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repository) ListStatusEventsSince(ctx context.Context, orderID uuid.UUID, sinceSeq int64) ([]models.StatusEvent, error) {
	var events []models.StatusEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND seq > ?", orderID, sinceSeq).
		Order("seq ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
