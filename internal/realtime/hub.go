package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/internal/negotiation"
	"github.com/serviplace/serviplace-backend/internal/orders"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/logger"
)

// subscriber is one attached connection from the hub's point of view.
// deliver must never block; slow consumers are the subscriber's problem.
type subscriber interface {
	deliver(frame []byte)
}

// Hub tracks which connections are in which per-order room and fans committed
// domain changes out to them. It implements the Notifier interfaces of the
// orders, negotiation, admin, and dispatch services, so broadcasts only ever
// happen after the owning transaction commits.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[subscriber]struct{}
	log   *logger.Logger
}

// NewHub builds an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms: map[uuid.UUID]map[subscriber]struct{}{},
		log:   log,
	}
}

func (h *Hub) join(orderID uuid.UUID, sub subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = map[subscriber]struct{}{}
		h.rooms[orderID] = room
	}
	room[sub] = struct{}{}
}

func (h *Hub) leave(orderID uuid.UUID, sub subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, orderID)
	}
}

// drop disconnects the subscriber from every room it joined.
func (h *Hub) drop(sub subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orderID, room := range h.rooms {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, orderID)
		}
	}
}

// broadcast delivers a frame to everyone in the room, optionally skipping one
// subscriber (typing indicators go to others only).
func (h *Hub) broadcast(orderID uuid.UUID, frame []byte, except subscriber) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[orderID] {
		if sub == except {
			continue
		}
		sub.deliver(frame)
	}
}

func (h *Hub) roomSize(orderID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orderID])
}

// OrderUpdated broadcasts a committed status change to the order's room.
func (h *Hub) OrderUpdated(ctx context.Context, order *models.Order, event *models.StatusEvent) {
	if order == nil {
		return
	}
	frame := marshalEvent(EventOrderUpdated, orderUpdatedPayload{
		Order: orders.FromModel(order),
		Event: orders.StatusEventFromModel(event),
	})
	h.broadcast(order.ID, frame, nil)
}

// OfferCreated broadcasts a fresh pending offer to the order's room.
func (h *Hub) OfferCreated(ctx context.Context, order *models.Order, offer *models.NegotiationOffer) {
	if order == nil || offer == nil {
		return
	}
	frame := marshalEvent(EventOfferNew, negotiation.OfferFromModel(offer))
	h.broadcast(order.ID, frame, nil)
}

// OfferAccepted broadcasts the acceptance plus the resulting order change.
func (h *Hub) OfferAccepted(ctx context.Context, order *models.Order, offer *models.NegotiationOffer, event *models.StatusEvent) {
	if order == nil || offer == nil {
		return
	}
	accepted := marshalEvent(EventOfferAccepted, offerAcceptedPayload{
		Offer: negotiation.OfferFromModel(offer),
		Order: orders.FromModel(order),
	})
	h.broadcast(order.ID, accepted, nil)

	updated := marshalEvent(EventOrderUpdated, orderUpdatedPayload{
		Order: orders.FromModel(order),
		Event: orders.StatusEventFromModel(event),
	})
	h.broadcast(order.ID, updated, nil)
}

// MessageCreated broadcasts a persisted chat message to the order's room.
func (h *Hub) MessageCreated(ctx context.Context, order *models.Order, message *models.Message) {
	if order == nil || message == nil {
		return
	}
	frame := marshalEvent(EventMessageNew, negotiation.MessageFromModel(message))
	h.broadcast(order.ID, frame, nil)
}
