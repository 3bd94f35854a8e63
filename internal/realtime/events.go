package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/internal/negotiation"
	"github.com/serviplace/serviplace-backend/internal/orders"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// Client-to-server events.
const (
	EventJoinOrder    = "join:order"
	EventLeaveOrder   = "leave:order"
	EventMessageSend  = "message:send"
	EventTypingStart  = "typing:start"
	EventOfferCreate  = "offer:create"
	EventOfferAccept  = "offer:accept"
	EventStatusUpdate = "status:update"
	EventAuthRenew    = "auth:renew"
)

// Server-to-client events.
const (
	EventOrderJoined     = "order:joined"
	EventMessageNew      = "message:new"
	EventTypingIndicator = "typing:indicator"
	EventOfferNew        = "offer:new"
	EventOfferAccepted   = "offer:accepted"
	EventOrderUpdated    = "order:updated"
	EventAuthExpired     = "auth:expired"
	EventAuthRenewed     = "auth:renewed"
	EventError           = "error"
)

// Envelope is the wire frame for both directions: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinOrderPayload struct {
	OrderID uuid.UUID `json:"order_id"`
}

type messageSendPayload struct {
	OrderID         uuid.UUID `json:"order_id"`
	Content         string    `json:"content"`
	ClientMessageID *string   `json:"client_message_id,omitempty"`
}

type offerCreatePayload struct {
	OrderID uuid.UUID `json:"order_id"`
	Amount  int       `json:"amount"`
}

type offerAcceptPayload struct {
	OrderID uuid.UUID `json:"order_id"`
	OfferID uuid.UUID `json:"offer_id"`
}

type statusUpdatePayload struct {
	OrderID uuid.UUID         `json:"order_id"`
	Status  enums.OrderStatus `json:"status"`
	Reason  *string           `json:"reason,omitempty"`
}

type authRenewPayload struct {
	Token string `json:"token"`
}

type orderJoinedPayload struct {
	Order *orders.OrderDTO `json:"order"`
}

type typingIndicatorPayload struct {
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Role    enums.ActorRole `json:"role"`
}

type orderUpdatedPayload struct {
	Order *orders.OrderDTO       `json:"order"`
	Event *orders.StatusEventDTO `json:"event,omitempty"`
}

type offerAcceptedPayload struct {
	Offer *negotiation.OfferDTO `json:"offer"`
	Order *orders.OrderDTO      `json:"order"`
}

type authRenewedPayload struct {
	ExpiresAt int64 `json:"expires_at"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// marshalEvent builds a complete outbound frame. Marshal failures are a
// programming error on our own payload types, so they collapse to a generic
// error frame rather than propagating.
func marshalEvent(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return []byte(`{"event":"error","data":{"code":"INTERNAL","message":"encode failed"}}`)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return []byte(`{"event":"error","data":{"code":"INTERNAL","message":"encode failed"}}`)
	}
	return frame
}
