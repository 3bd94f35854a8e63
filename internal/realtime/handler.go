package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/serviplace/serviplace-backend/internal/negotiation"
	"github.com/serviplace/serviplace-backend/internal/orders"
	pkgAuth "github.com/serviplace/serviplace-backend/pkg/auth"
	"github.com/serviplace/serviplace-backend/pkg/config"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/logger"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

// Handler routes inbound socket frames to the domain services. Every handler
// re-runs the same authorization and business validation as the REST path; a
// socket frame is untrusted input like any other request.
type Handler struct {
	hub         *Hub
	orders      orders.Service
	negotiation negotiation.Service
	jwtCfg      config.JWTConfig
	log         *logger.Logger
}

// HandlerParams bundles the handler's dependencies.
type HandlerParams struct {
	Hub                *Hub
	OrdersService      orders.Service
	NegotiationService negotiation.Service
	JWTConfig          config.JWTConfig
	Logger             *logger.Logger
}

// NewHandler constructs the socket frame router.
func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if params.OrdersService == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if params.NegotiationService == nil {
		return nil, fmt.Errorf("negotiation service is required")
	}
	return &Handler{
		hub:         params.Hub,
		orders:      params.OrdersService,
		negotiation: params.NegotiationService,
		jwtCfg:      params.JWTConfig,
		log:         params.Logger,
	}, nil
}

// Handle processes one inbound frame. A panic in any handler is scoped to the
// originating connection: it becomes an error event, never a crash.
func (h *Handler) Handle(ctx context.Context, sess *Session, sub subscriber, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			if h.log != nil {
				h.log.Error(ctx, "realtime handler panic", fmt.Errorf("panic: %v", r))
			}
			sub.deliver(marshalEvent(EventError, errorPayload{
				Code:    string(pkgerrors.CodeInternal),
				Message: "internal server error",
			}))
		}
	}()

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		sub.deliver(marshalEvent(EventError, errorPayload{
			Code:    string(pkgerrors.CodeValidation),
			Message: "malformed frame",
		}))
		return
	}

	if env.Event == EventAuthRenew {
		h.handleAuthRenew(ctx, sess, sub, env.Data)
		return
	}

	// Token expiry mid-session refuses authenticated operations until the
	// client renews.
	if sess.Expired(time.Now().UTC()) {
		sub.deliver(marshalEvent(EventAuthExpired, errorPayload{
			Code:    string(pkgerrors.CodeUnauthorized),
			Message: "access token expired, renew to continue",
		}))
		return
	}

	switch env.Event {
	case EventJoinOrder:
		h.handleJoin(ctx, sess, sub, env.Data)
	case EventLeaveOrder:
		h.handleLeave(sess, sub, env.Data)
	case EventMessageSend:
		h.handleMessageSend(ctx, sess, sub, env.Data)
	case EventTypingStart:
		h.handleTyping(sess, sub, env.Data)
	case EventOfferCreate:
		h.handleOfferCreate(ctx, sess, sub, env.Data)
	case EventOfferAccept:
		h.handleOfferAccept(ctx, sess, sub, env.Data)
	case EventStatusUpdate:
		h.handleStatusUpdate(ctx, sess, sub, env.Data)
	default:
		sub.deliver(marshalEvent(EventError, errorPayload{
			Code:    string(pkgerrors.CodeValidation),
			Message: fmt.Sprintf("unknown event %q", env.Event),
		}))
	}
}

func (h *Handler) handleAuthRenew(ctx context.Context, sess *Session, sub subscriber, data json.RawMessage) {
	var payload authRenewPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed auth payload"))
		return
	}
	claims, err := pkgAuth.ParseAccessToken(h.jwtCfg, payload.Token)
	if err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token"))
		return
	}
	// A renewal may not switch the connection to a different identity.
	if claims.UserID != sess.UserID {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeForbidden, "token does not match connection identity"))
		return
	}
	expiry := time.Now().UTC().Add(time.Duration(h.jwtCfg.ExpirationMinutes) * time.Minute)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	sess.Renew(expiry)
	sub.deliver(marshalEvent(EventAuthRenewed, authRenewedPayload{ExpiresAt: expiry.Unix()}))
}

func (h *Handler) handleJoin(ctx context.Context, sess *Session, sub subscriber, data json.RawMessage) {
	var payload joinOrderPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed join payload"))
		return
	}
	order, _, err := h.negotiation.CheckParticipant(ctx, sess.UserID, payload.OrderID)
	if err != nil {
		h.sendError(sub, err)
		return
	}
	h.hub.join(order.ID, sub)
	sess.Join(order.ID)
	sub.deliver(marshalEvent(EventOrderJoined, orderJoinedPayload{Order: orders.FromModel(order)}))
}

func (h *Handler) handleLeave(sess *Session, sub subscriber, data json.RawMessage) {
	var payload joinOrderPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed leave payload"))
		return
	}
	h.hub.leave(payload.OrderID, sub)
	sess.Leave(payload.OrderID)
}

func (h *Handler) handleMessageSend(ctx context.Context, sess *Session, sub subscriber, data json.RawMessage) {
	var payload messageSendPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed message payload"))
		return
	}
	// Broadcast to the room happens through the hub's MessageCreated notifier
	// once the insert commits.
	_, err := h.negotiation.SendMessage(ctx, sess.UserID, negotiation.SendMessageInput{
		OrderID:         payload.OrderID,
		Content:         payload.Content,
		ClientMessageID: payload.ClientMessageID,
	})
	if err != nil {
		h.sendError(sub, err)
	}
}

// handleTyping relays an ephemeral indicator to the rest of the room. Nothing
// is persisted; clients expire the indicator on their side.
func (h *Handler) handleTyping(sess *Session, sub subscriber, data json.RawMessage) {
	var payload joinOrderPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed typing payload"))
		return
	}
	if !sess.Joined(payload.OrderID) {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeForbidden, "join the order room first"))
		return
	}
	frame := marshalEvent(EventTypingIndicator, typingIndicatorPayload{
		OrderID: payload.OrderID,
		UserID:  sess.UserID,
		Role:    sess.Role,
	})
	h.hub.broadcast(payload.OrderID, frame, sub)
}

func (h *Handler) handleOfferCreate(ctx context.Context, sess *Session, sub subscriber, data json.RawMessage) {
	var payload offerCreatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed offer payload"))
		return
	}
	if _, err := h.negotiation.CreateOffer(ctx, sess.UserID, payload.OrderID, payload.Amount); err != nil {
		h.sendError(sub, err)
	}
}

func (h *Handler) handleOfferAccept(ctx context.Context, sess *Session, sub subscriber, data json.RawMessage) {
	var payload offerAcceptPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed accept payload"))
		return
	}
	if _, err := h.negotiation.AcceptOffer(ctx, sess.UserID, payload.OrderID, payload.OfferID); err != nil {
		h.sendError(sub, err)
	}
}

func (h *Handler) handleStatusUpdate(ctx context.Context, sess *Session, sub subscriber, data json.RawMessage) {
	var payload statusUpdatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		h.sendError(sub, pkgerrors.New(pkgerrors.CodeValidation, "malformed status payload"))
		return
	}
	actor := types.Actor{UserID: sess.UserID, Role: sess.Role}
	_, err := h.orders.UpdateStatus(ctx, actor, orders.UpdateStatusInput{
		OrderID:  payload.OrderID,
		ToStatus: payload.Status,
		Reason:   payload.Reason,
	})
	if err != nil {
		h.sendError(sub, err)
	}
}

// sendError surfaces a failure to the originating connection only, exposing
// the detailed message only when the code allows it.
func (h *Handler) sendError(sub subscriber, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "internal server error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	message := meta.PublicMessage
	if meta.DetailsAllowed && typed.Message() != "" {
		message = typed.Message()
	}
	sub.deliver(marshalEvent(EventError, errorPayload{
		Code:    string(typed.Code()),
		Message: message,
	}))
}
