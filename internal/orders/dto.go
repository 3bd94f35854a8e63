package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/serviplace/serviplace-backend/pkg/db/models"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// DetailInput carries the service-specific parameters for one order. Exactly
// the fields matching the order's service type must be set.
type DetailInput struct {
	SurfaceM2 *int             `json:"surface_m2,omitempty"`
	CleanType *enums.CleanType `json:"clean_type,omitempty"`
	TeamType  *enums.TeamType  `json:"team_type,omitempty"`
	Guests    *int             `json:"guests,omitempty"`
	Children  *int             `json:"children,omitempty"`
	Hours     *int             `json:"hours,omitempty"`
}

// CreateOrderInput captures everything needed to open a new order.
type CreateOrderInput struct {
	ServiceType      enums.ServiceType
	Location         string
	ScheduledStartAt *time.Time
	Detail           DetailInput
}

// UpdateStatusInput carries a requested status transition.
type UpdateStatusInput struct {
	OrderID  uuid.UUID
	ToStatus enums.OrderStatus
	Reason   *string
}

// OrderList wraps a paginated page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// OrderDetailDTO is the transport shape for service-specific parameters.
type OrderDetailDTO struct {
	SurfaceM2 *int             `json:"surface_m2,omitempty"`
	CleanType *enums.CleanType `json:"clean_type,omitempty"`
	TeamType  *enums.TeamType  `json:"team_type,omitempty"`
	Guests    *int             `json:"guests,omitempty"`
	Children  *int             `json:"children,omitempty"`
	Hours     *int             `json:"hours,omitempty"`
}

// AssignmentDTO describes one professional attached to an order.
type AssignmentDTO struct {
	ID             uuid.UUID              `json:"id"`
	ProfessionalID uuid.UUID              `json:"professional_id"`
	IsLead         bool                   `json:"is_lead"`
	Status         enums.AssignmentStatus `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
}

// OrderDTO is the transport shape for one order aggregate.
type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	ClientID         uuid.UUID         `json:"client_id"`
	ServiceType      enums.ServiceType `json:"service_type"`
	Status           enums.OrderStatus `json:"status"`
	FloorPrice       int               `json:"floor_price"`
	FinalPrice       *int              `json:"final_price,omitempty"`
	Location         string            `json:"location"`
	ScheduledStartAt *time.Time        `json:"scheduled_start_at,omitempty"`
	Detail           *OrderDetailDTO   `json:"detail,omitempty"`
	Assignments      []AssignmentDTO   `json:"assignments"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// StatusEventDTO is the transport shape for one timeline entry.
type StatusEventDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderID     uuid.UUID         `json:"order_id"`
	Seq         int64             `json:"seq"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	ToStatus    enums.OrderStatus `json:"to_status"`
	ActorUserID *uuid.UUID        `json:"actor_user_id,omitempty"`
	ActorRole   enums.ActorRole   `json:"actor_role"`
	Reason      *string           `json:"reason,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}

	dto := &OrderDTO{
		ID:               o.ID,
		ClientID:         o.ClientID,
		ServiceType:      o.ServiceType,
		Status:           o.Status,
		FloorPrice:       o.FloorPrice,
		FinalPrice:       o.FinalPrice,
		Location:         o.Location,
		ScheduledStartAt: o.ScheduledStartAt,
		Assignments:      make([]AssignmentDTO, 0, len(o.Assignments)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.Detail != nil {
		dto.Detail = &OrderDetailDTO{
			SurfaceM2: o.Detail.SurfaceM2,
			CleanType: o.Detail.CleanType,
			TeamType:  o.Detail.TeamType,
			Guests:    o.Detail.Guests,
			Children:  o.Detail.Children,
			Hours:     o.Detail.Hours,
		}
	}
	for _, a := range o.Assignments {
		dto.Assignments = append(dto.Assignments, AssignmentDTO{
			ID:             a.ID,
			ProfessionalID: a.ProfessionalID,
			IsLead:         a.IsLead,
			Status:         a.Status,
			CreatedAt:      a.CreatedAt,
		})
	}
	return dto
}

func StatusEventFromModel(e *models.StatusEvent) *StatusEventDTO {
	if e == nil {
		return nil
	}

	return &StatusEventDTO{
		ID:          e.ID,
		OrderID:     e.OrderID,
		Seq:         e.Seq,
		FromStatus:  e.FromStatus,
		ToStatus:    e.ToStatus,
		ActorUserID: e.ActorUserID,
		ActorRole:   e.ActorRole,
		Reason:      e.Reason,
		CreatedAt:   e.CreatedAt,
	}
}
