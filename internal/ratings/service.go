package ratings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/serviplace/serviplace-backend/pkg/db"
	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateRatingInput carries one rating submission.
type CreateRatingInput struct {
	OrderID uuid.UUID
	Stars   int
	Comment *string
}

// Service defines rating operations.
type Service interface {
	Create(ctx context.Context, actor types.Actor, input CreateRatingInput) (*models.Rating, error)
	GetByOrder(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*models.Rating, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a ratings service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ratings repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, actor types.Actor, input CreateRatingInput) (*models.Rating, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Stars < 1 || input.Stars > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stars must be between 1 and 5")
	}

	var rating *models.Rating
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed orders can be rated")
		}

		professionalID, ok := leadProfessional(order.Assignments)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no assigned professional")
		}

		rating = &models.Rating{
			OrderID:        order.ID,
			ClientID:       actor.UserID,
			ProfessionalID: professionalID,
			Stars:          input.Stars,
			Comment:        input.Comment,
		}
		if _, err := repo.CreateRating(ctx, rating); err != nil {
			if db.IsUniqueViolation(err, "idx_ratings_order") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already rated")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rating")
		}

		if err := repo.IncrementProfessionalRating(ctx, professionalID, input.Stars); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update professional rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

func (s *service) GetByOrder(ctx context.Context, actor types.Actor, orderID uuid.UUID) (*models.Rating, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if actor.Role != enums.ActorRoleAdmin && order.ClientID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	rating, err := s.repo.FindRatingByOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rating not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rating")
	}
	return rating, nil
}

func leadProfessional(assignments []models.OrderAssignment) (uuid.UUID, bool) {
	for _, a := range assignments {
		if a.IsLead {
			return a.ProfessionalID, true
		}
	}
	if len(assignments) > 0 {
		return assignments[0].ProfessionalID, true
	}
	return uuid.Nil, false
}
