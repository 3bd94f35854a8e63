package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/internal/negotiation"
	"github.com/serviplace/serviplace-backend/internal/orders"
	pkgAuth "github.com/serviplace/serviplace-backend/pkg/auth"
	"github.com/serviplace/serviplace-backend/pkg/config"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/pagination"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

type stubOrdersService struct {
	updated []orders.UpdateStatusInput
	err     error
}

func (s *stubOrdersService) Create(ctx context.Context, actor types.Actor, input orders.CreateOrderInput) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubOrdersService) Get(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubOrdersService) List(ctx context.Context, actor types.Actor, params pagination.Params) (*orders.OrderList, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubOrdersService) Cancel(ctx context.Context, actor types.Actor, orderID uuid.UUID, reason *string) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubOrdersService) UpdateStatus(ctx context.Context, actor types.Actor, input orders.UpdateStatusInput) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.updated = append(s.updated, input)
	return &models.Order{ID: input.OrderID, Status: input.ToStatus}, nil
}

func (s *stubOrdersService) Participant(ctx context.Context, userID uuid.UUID, orderID uuid.UUID) (*models.Order, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubNegotiationService struct {
	order        *models.Order
	participants map[uuid.UUID]enums.ActorRole
	sent         []negotiation.SendMessageInput
	offers       []int
	accepted     []uuid.UUID
	panicOnSend  bool
}

func (s *stubNegotiationService) CheckParticipant(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, enums.ActorRole, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	role, ok := s.participants[userID]
	if !ok {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this order")
	}
	return s.order, role, nil
}

func (s *stubNegotiationService) CreateOffer(ctx context.Context, userID, orderID uuid.UUID, amount int) (*models.NegotiationOffer, error) {
	if _, _, err := s.CheckParticipant(ctx, userID, orderID); err != nil {
		return nil, err
	}
	s.offers = append(s.offers, amount)
	return &models.NegotiationOffer{ID: uuid.New(), OrderID: orderID, Amount: amount, Status: enums.OfferStatusPending}, nil
}

func (s *stubNegotiationService) AcceptOffer(ctx context.Context, userID, orderID, offerID uuid.UUID) (*negotiation.AcceptResult, error) {
	if _, _, err := s.CheckParticipant(ctx, userID, orderID); err != nil {
		return nil, err
	}
	s.accepted = append(s.accepted, offerID)
	return &negotiation.AcceptResult{Order: s.order}, nil
}

func (s *stubNegotiationService) ListOffers(ctx context.Context, userID, orderID uuid.UUID) ([]models.NegotiationOffer, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubNegotiationService) ListMessages(ctx context.Context, userID, orderID uuid.UUID) ([]models.Message, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubNegotiationService) SendMessage(ctx context.Context, userID uuid.UUID, input negotiation.SendMessageInput) (*models.Message, error) {
	if s.panicOnSend {
		panic("boom")
	}
	if _, _, err := s.CheckParticipant(ctx, userID, input.OrderID); err != nil {
		return nil, err
	}
	s.sent = append(s.sent, input)
	return &models.Message{ID: uuid.New(), OrderID: input.OrderID, Content: input.Content}, nil
}

func (s *stubNegotiationService) Poll(ctx context.Context, userID, orderID uuid.UUID, sinceSeq int64) (*negotiation.PollResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func handlerJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "handler-test-secret",
		Issuer:            "serviplace-test",
		ExpirationMinutes: 30,
	}
}

func newTestHandler(t *testing.T, ordersSvc orders.Service, negotiationSvc negotiation.Service) (*Handler, *Hub) {
	t.Helper()
	hub := NewHub(nil)
	handler, err := NewHandler(HandlerParams{
		Hub:                hub,
		OrdersService:      ordersSvc,
		NegotiationService: negotiationSvc,
		JWTConfig:          handlerJWTConfig(),
	})
	if err != nil {
		t.Fatalf("handler constructor failed: %v", err)
	}
	return handler, hub
}

func frame(t *testing.T, event string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func liveSession(userID uuid.UUID, role enums.ActorRole) *Session {
	return NewSession(userID, role, time.Now().UTC().Add(30*time.Minute))
}

func decodeError(t *testing.T, sub *fakeSub) errorPayload {
	t.Helper()
	if len(sub.frames) == 0 {
		t.Fatal("expected a frame")
	}
	var env Envelope
	if err := json.Unmarshal(sub.frames[len(sub.frames)-1], &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var payload errorPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return payload
}

func TestHandleJoinAuthorizesAndReplies(t *testing.T) {
	clientID := uuid.New()
	order := &models.Order{ID: uuid.New(), ClientID: clientID, Status: enums.OrderStatusNegotiating}
	negotiationSvc := &stubNegotiationService{
		order:        order,
		participants: map[uuid.UUID]enums.ActorRole{clientID: enums.ActorRoleClient},
	}
	handler, hub := newTestHandler(t, &stubOrdersService{}, negotiationSvc)

	sess := liveSession(clientID, enums.ActorRoleClient)
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventJoinOrder, joinOrderPayload{OrderID: order.ID}))

	events := sub.events(t)
	if len(events) != 1 || events[0] != EventOrderJoined {
		t.Fatalf("expected order:joined got %v", events)
	}
	if !sess.Joined(order.ID) {
		t.Fatal("session did not record room membership")
	}
	if hub.roomSize(order.ID) != 1 {
		t.Fatalf("expected 1 room member got %d", hub.roomSize(order.ID))
	}
}

func TestHandleJoinRejectsOutsider(t *testing.T) {
	order := &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusNegotiating}
	negotiationSvc := &stubNegotiationService{
		order:        order,
		participants: map[uuid.UUID]enums.ActorRole{order.ClientID: enums.ActorRoleClient},
	}
	handler, hub := newTestHandler(t, &stubOrdersService{}, negotiationSvc)

	outsider := uuid.New()
	sess := liveSession(outsider, enums.ActorRoleClient)
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventJoinOrder, joinOrderPayload{OrderID: order.ID}))

	payload := decodeError(t, sub)
	if payload.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %+v", payload)
	}
	if hub.roomSize(order.ID) != 0 {
		t.Fatal("outsider must not enter the room")
	}
}

func TestHandleExpiredSessionRefusesOperations(t *testing.T) {
	handler, _ := newTestHandler(t, &stubOrdersService{}, &stubNegotiationService{})

	sess := NewSession(uuid.New(), enums.ActorRoleClient, time.Now().UTC().Add(-time.Minute))
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventMessageSend, messageSendPayload{OrderID: uuid.New(), Content: "hi"}))

	events := sub.events(t)
	if len(events) != 1 || events[0] != EventAuthExpired {
		t.Fatalf("expected auth:expired got %v", events)
	}
}

func TestHandleAuthRenewExtendsSession(t *testing.T) {
	userID := uuid.New()
	handler, _ := newTestHandler(t, &stubOrdersService{}, &stubNegotiationService{})

	sess := NewSession(userID, enums.ActorRoleClient, time.Now().UTC().Add(-time.Minute))
	token, err := pkgAuth.MintAccessToken(handlerJWTConfig(), time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.ActorRoleClient,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventAuthRenew, authRenewPayload{Token: token}))

	events := sub.events(t)
	if len(events) != 1 || events[0] != EventAuthRenewed {
		t.Fatalf("expected auth:renewed got %v", events)
	}
	if sess.Expired(time.Now().UTC()) {
		t.Fatal("session should be live after renewal")
	}
}

func TestHandleAuthRenewRejectsDifferentUser(t *testing.T) {
	handler, _ := newTestHandler(t, &stubOrdersService{}, &stubNegotiationService{})

	sess := liveSession(uuid.New(), enums.ActorRoleClient)
	token, err := pkgAuth.MintAccessToken(handlerJWTConfig(), time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.ActorRoleClient,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventAuthRenew, authRenewPayload{Token: token}))

	payload := decodeError(t, sub)
	if payload.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %+v", payload)
	}
}

func TestHandleTypingBroadcastsToOthersOnly(t *testing.T) {
	clientID := uuid.New()
	proID := uuid.New()
	order := &models.Order{ID: uuid.New(), ClientID: clientID, Status: enums.OrderStatusNegotiating}
	negotiationSvc := &stubNegotiationService{
		order: order,
		participants: map[uuid.UUID]enums.ActorRole{
			clientID: enums.ActorRoleClient,
			proID:    enums.ActorRolePro,
		},
	}
	handler, _ := newTestHandler(t, &stubOrdersService{}, negotiationSvc)

	clientSess := liveSession(clientID, enums.ActorRoleClient)
	proSess := liveSession(proID, enums.ActorRolePro)
	clientSub := &fakeSub{}
	proSub := &fakeSub{}
	handler.Handle(context.Background(), clientSess, clientSub, frame(t, EventJoinOrder, joinOrderPayload{OrderID: order.ID}))
	handler.Handle(context.Background(), proSess, proSub, frame(t, EventJoinOrder, joinOrderPayload{OrderID: order.ID}))
	clientSub.frames = nil
	proSub.frames = nil

	handler.Handle(context.Background(), clientSess, clientSub, frame(t, EventTypingStart, joinOrderPayload{OrderID: order.ID}))

	if len(clientSub.frames) != 0 {
		t.Fatal("typing indicator must not echo to the sender")
	}
	events := proSub.events(t)
	if len(events) != 1 || events[0] != EventTypingIndicator {
		t.Fatalf("expected typing:indicator got %v", events)
	}
}

func TestHandleTypingRequiresJoin(t *testing.T) {
	handler, _ := newTestHandler(t, &stubOrdersService{}, &stubNegotiationService{})

	sess := liveSession(uuid.New(), enums.ActorRoleClient)
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventTypingStart, joinOrderPayload{OrderID: uuid.New()}))

	payload := decodeError(t, sub)
	if payload.Code != string(pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %+v", payload)
	}
}

func TestHandleMessageSendInvokesService(t *testing.T) {
	clientID := uuid.New()
	order := &models.Order{ID: uuid.New(), ClientID: clientID, Status: enums.OrderStatusNegotiating}
	negotiationSvc := &stubNegotiationService{
		order:        order,
		participants: map[uuid.UUID]enums.ActorRole{clientID: enums.ActorRoleClient},
	}
	handler, _ := newTestHandler(t, &stubOrdersService{}, negotiationSvc)

	sess := liveSession(clientID, enums.ActorRoleClient)
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventMessageSend, messageSendPayload{OrderID: order.ID, Content: "deal?"}))

	if len(negotiationSvc.sent) != 1 || negotiationSvc.sent[0].Content != "deal?" {
		t.Fatalf("message not forwarded to service: %+v", negotiationSvc.sent)
	}
	if len(sub.frames) != 0 {
		t.Fatalf("no direct reply expected, got %v", sub.events(t))
	}
}

func TestHandleStatusUpdateForwardsActor(t *testing.T) {
	proID := uuid.New()
	ordersSvc := &stubOrdersService{}
	handler, _ := newTestHandler(t, ordersSvc, &stubNegotiationService{})

	sess := liveSession(proID, enums.ActorRolePro)
	sub := &fakeSub{}
	orderID := uuid.New()
	handler.Handle(context.Background(), sess, sub, frame(t, EventStatusUpdate, statusUpdatePayload{OrderID: orderID, Status: enums.OrderStatusEnRoute}))

	if len(ordersSvc.updated) != 1 || ordersSvc.updated[0].ToStatus != enums.OrderStatusEnRoute {
		t.Fatalf("status update not forwarded: %+v", ordersSvc.updated)
	}
}

func TestHandleUnknownEventErrors(t *testing.T) {
	handler, _ := newTestHandler(t, &stubOrdersService{}, &stubNegotiationService{})

	sess := liveSession(uuid.New(), enums.ActorRoleClient)
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, []byte(`{"event":"order:destroy"}`))

	payload := decodeError(t, sub)
	if payload.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %+v", payload)
	}
}

func TestHandlePanicIsScopedToConnection(t *testing.T) {
	negotiationSvc := &stubNegotiationService{panicOnSend: true}
	handler, _ := newTestHandler(t, &stubOrdersService{}, negotiationSvc)

	sess := liveSession(uuid.New(), enums.ActorRoleClient)
	sub := &fakeSub{}
	handler.Handle(context.Background(), sess, sub, frame(t, EventMessageSend, messageSendPayload{OrderID: uuid.New(), Content: "boom"}))

	payload := decodeError(t, sub)
	if payload.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error got %+v", payload)
	}
}
