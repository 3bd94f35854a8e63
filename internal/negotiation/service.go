package negotiation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/internal/orders"
	"github.com/serviplace/serviplace-backend/internal/pricing"
	"github.com/serviplace/serviplace-backend/pkg/db"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
)

// MaxMessageLength caps chat message content in runes.
const MaxMessageLength = 2000

// OfferStep is the granularity offers must align to.
const OfferStep = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier fans committed negotiation changes out to connected parties.
// Called after the transaction commits, never inside it.
type Notifier interface {
	OfferCreated(ctx context.Context, order *models.Order, offer *models.NegotiationOffer)
	OfferAccepted(ctx context.Context, order *models.Order, offer *models.NegotiationOffer, event *models.StatusEvent)
	MessageCreated(ctx context.Context, order *models.Order, message *models.Message)
}

// NopNotifier discards negotiation notifications.
type NopNotifier struct{}

func (NopNotifier) OfferCreated(context.Context, *models.Order, *models.NegotiationOffer) {}
func (NopNotifier) OfferAccepted(context.Context, *models.Order, *models.NegotiationOffer, *models.StatusEvent) {
}
func (NopNotifier) MessageCreated(context.Context, *models.Order, *models.Message) {}

// Service defines the negotiation operations.
type Service interface {
	CheckParticipant(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, enums.ActorRole, error)
	CreateOffer(ctx context.Context, userID, orderID uuid.UUID, amount int) (*models.NegotiationOffer, error)
	AcceptOffer(ctx context.Context, userID, orderID, offerID uuid.UUID) (*AcceptResult, error)
	ListOffers(ctx context.Context, userID, orderID uuid.UUID) ([]models.NegotiationOffer, error)
	ListMessages(ctx context.Context, userID, orderID uuid.UUID) ([]models.Message, error)
	SendMessage(ctx context.Context, userID uuid.UUID, input SendMessageInput) (*models.Message, error)
	Poll(ctx context.Context, userID, orderID uuid.UUID, sinceSeq int64) (*PollResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier Notifier
}

// NewService builds a negotiation service with the required dependencies.
func NewService(repo Repository, tx txRunner, notifier Notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("negotiation repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &service{repo: repo, tx: tx, notifier: notifier}, nil
}

// CheckParticipant resolves userID's relationship to the order: the order's
// client, or one of its assigned professionals. Anyone else is forbidden.
func (s *service) CheckParticipant(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, enums.ActorRole, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	role, err := participantRole(order, userID)
	if err != nil {
		return nil, "", err
	}
	return order, role, nil
}

func (s *service) CreateOffer(ctx context.Context, userID, orderID uuid.UUID, amount int) (*models.NegotiationOffer, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		offer *models.NegotiationOffer
		order *models.Order
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, _, err = checkParticipantIn(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusNegotiating {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not negotiating")
		}

		if amount%OfferStep != 0 {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("amount must be a multiple of %d", OfferStep))
		}
		ceiling := pricing.CeilingFor(order.FloorPrice)
		if amount < order.FloorPrice || amount > ceiling {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("amount must be between %d and %d", order.FloorPrice, ceiling))
		}

		// One live offer per user: superseding, not stacking.
		if err := repo.RejectPendingOffersByUser(ctx, orderID, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede pending offers")
		}

		offer = &models.NegotiationOffer{
			OrderID:   orderID,
			OfferedBy: userID,
			Amount:    amount,
			Status:    enums.OfferStatusPending,
		}
		if err := repo.CreateOffer(ctx, offer); err != nil {
			return wrapSeqWrite(err, "create offer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OfferCreated(ctx, order, offer)
	return offer, nil
}

func (s *service) AcceptOffer(ctx context.Context, userID, orderID, offerID uuid.UUID) (*AcceptResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		result AcceptResult
		event  *models.StatusEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, role, err := checkParticipantIn(ctx, repo, userID, orderID)
		if err != nil {
			return err
		}

		offer, err := repo.FindOffer(ctx, offerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		if offer.OrderID != order.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		if offer.OfferedBy == userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot accept your own offer")
		}
		if offer.Status != enums.OfferStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer is no longer pending")
		}

		// The guard, not the read above, decides the race: two concurrent
		// accepts both pass the status check, only one update matches rows.
		acceptedAt := time.Now().UTC()
		rows, err := repo.AcceptOfferGuarded(ctx, offer.ID, acceptedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept offer")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer is no longer pending")
		}

		if err := repo.RejectOtherPendingOffers(ctx, orderID, offer.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject competing offers")
		}

		rows, err = repo.LockFinalPrice(ctx, orderID, offer.Amount, enums.OrderStatusNegotiating, enums.OrderStatusAccepted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock final price")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not negotiating")
		}

		event = &models.StatusEvent{
			OrderID:     orderID,
			FromStatus:  enums.OrderStatusNegotiating,
			ToStatus:    enums.OrderStatusAccepted,
			ActorUserID: &userID,
			ActorRole:   role,
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			return wrapSeqWrite(err, "append status event")
		}

		offer.Status = enums.OfferStatusAccepted
		offer.AcceptedAt = &acceptedAt
		amount := offer.Amount
		order.FinalPrice = &amount
		order.Status = enums.OrderStatusAccepted

		result.Offer = offer
		result.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OfferAccepted(ctx, result.Order, result.Offer, event)
	return &result, nil
}

func (s *service) ListOffers(ctx context.Context, userID, orderID uuid.UUID) ([]models.NegotiationOffer, error) {
	if _, _, err := s.CheckParticipant(ctx, userID, orderID); err != nil {
		return nil, err
	}
	offers, err := s.repo.ListOffersSince(ctx, orderID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	return offers, nil
}

func (s *service) ListMessages(ctx context.Context, userID, orderID uuid.UUID) ([]models.Message, error) {
	if _, _, err := s.CheckParticipant(ctx, userID, orderID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessagesSince(ctx, orderID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return messages, nil
}

func (s *service) SendMessage(ctx context.Context, userID uuid.UUID, input SendMessageInput) (*models.Message, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message content required")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("message content exceeds %d characters", MaxMessageLength))
	}

	order, role, err := s.CheckParticipant(ctx, userID, input.OrderID)
	if err != nil {
		return nil, err
	}

	if input.ClientMessageID != nil {
		existing, err := s.repo.FindMessageByClientID(ctx, input.OrderID, *input.ClientMessageID)
		if err == nil {
			return existing, nil
		}
		if err != gorm.ErrRecordNotFound {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up message by client id")
		}
	}

	message := &models.Message{
		OrderID:         input.OrderID,
		SenderID:        userID,
		SenderRole:      role,
		Content:         content,
		ClientMessageID: input.ClientMessageID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateMessage(ctx, message)
	})
	if err != nil {
		// Two retries racing past the lookup: the unique index keeps one row,
		// the loser reads it back.
		if input.ClientMessageID != nil && db.IsUniqueViolation(err, "idx_messages_order_client_id") {
			existing, findErr := s.repo.FindMessageByClientID(ctx, input.OrderID, *input.ClientMessageID)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, wrapSeqWrite(err, "create message")
	}

	s.notifier.MessageCreated(ctx, order, message)
	return message, nil
}

func (s *service) Poll(ctx context.Context, userID, orderID uuid.UUID, sinceSeq int64) (*PollResult, error) {
	if _, _, err := s.CheckParticipant(ctx, userID, orderID); err != nil {
		return nil, err
	}
	if sinceSeq < 0 {
		sinceSeq = 0
	}

	messages, err := s.repo.ListMessagesSince(ctx, orderID, sinceSeq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	offers, err := s.repo.ListOffersSince(ctx, orderID, sinceSeq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers")
	}
	events, err := s.repo.ListStatusEventsSince(ctx, orderID, sinceSeq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list status events")
	}

	result := &PollResult{
		Messages:     make([]MessageDTO, 0, len(messages)),
		Offers:       make([]OfferDTO, 0, len(offers)),
		StatusEvents: make([]orders.StatusEventDTO, 0, len(events)),
		NextSeq:      sinceSeq,
	}
	for i := range messages {
		result.Messages = append(result.Messages, *MessageFromModel(&messages[i]))
		if messages[i].Seq > result.NextSeq {
			result.NextSeq = messages[i].Seq
		}
	}
	for i := range offers {
		result.Offers = append(result.Offers, *OfferFromModel(&offers[i]))
		if offers[i].Seq > result.NextSeq {
			result.NextSeq = offers[i].Seq
		}
	}
	for i := range events {
		result.StatusEvents = append(result.StatusEvents, *orders.StatusEventFromModel(&events[i]))
		if events[i].Seq > result.NextSeq {
			result.NextSeq = events[i].Seq
		}
	}
	return result, nil
}

// wrapSeqWrite classifies append failures: a lost seq race is a retryable
// conflict, anything else is a dependency failure.
func wrapSeqWrite(err error, msg string) error {
	if db.IsSeqConflict(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "concurrent write, retry the request")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func checkParticipantIn(ctx context.Context, repo Repository, userID, orderID uuid.UUID) (*models.Order, enums.ActorRole, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	role, err := participantRole(order, userID)
	if err != nil {
		return nil, "", err
	}
	return order, role, nil
}

func participantRole(order *models.Order, userID uuid.UUID) (enums.ActorRole, error) {
	if order.ClientID == userID {
		return enums.ActorRoleClient, nil
	}
	for _, a := range order.Assignments {
		if a.ProfessionalID == userID {
			return enums.ActorRolePro, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeForbidden, "not a participant of this order")
}
