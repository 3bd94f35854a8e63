package negotiation

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/internal/orders"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// SendMessageInput carries one chat message append. ClientMessageID, when
// set, makes retries idempotent.
type SendMessageInput struct {
	OrderID         uuid.UUID
	Content         string
	ClientMessageID *string
}

// AcceptResult echoes both mutated entities after a successful acceptance.
type AcceptResult struct {
	Offer *models.NegotiationOffer
	Order *models.Order
}

// PollResult is the pull-based catch-up payload: everything newer than the
// caller's cursor across the three per-order sequence spaces.
type PollResult struct {
	Messages     []MessageDTO            `json:"messages"`
	Offers       []OfferDTO              `json:"offers"`
	StatusEvents []orders.StatusEventDTO `json:"status_events"`
	NextSeq      int64                   `json:"next_seq"`
}

// OfferDTO is the transport shape for one negotiation offer.
type OfferDTO struct {
	ID         uuid.UUID         `json:"id"`
	OrderID    uuid.UUID         `json:"order_id"`
	Seq        int64             `json:"seq"`
	OfferedBy  uuid.UUID         `json:"offered_by"`
	Amount     int               `json:"amount"`
	Status     enums.OfferStatus `json:"status"`
	AcceptedAt *time.Time        `json:"accepted_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// MessageDTO is the transport shape for one chat entry.
type MessageDTO struct {
	ID              uuid.UUID       `json:"id"`
	OrderID         uuid.UUID       `json:"order_id"`
	Seq             int64           `json:"seq"`
	SenderID        uuid.UUID       `json:"sender_id"`
	SenderRole      enums.ActorRole `json:"sender_role"`
	Content         string          `json:"content"`
	ClientMessageID *string         `json:"client_message_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func OfferFromModel(o *models.NegotiationOffer) *OfferDTO {
	if o == nil {
		return nil
	}

	return &OfferDTO{
		ID:         o.ID,
		OrderID:    o.OrderID,
		Seq:        o.Seq,
		OfferedBy:  o.OfferedBy,
		Amount:     o.Amount,
		Status:     o.Status,
		AcceptedAt: o.AcceptedAt,
		CreatedAt:  o.CreatedAt,
	}
}

func MessageFromModel(m *models.Message) *MessageDTO {
	if m == nil {
		return nil
	}

	return &MessageDTO{
		ID:              m.ID,
		OrderID:         m.OrderID,
		Seq:             m.Seq,
		SenderID:        m.SenderID,
		SenderRole:      m.SenderRole,
		Content:         m.Content,
		ClientMessageID: m.ClientMessageID,
		CreatedAt:       m.CreatedAt,
	}
}
