package pricing

import (
	"fmt"
	"math"

	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/enums"
)

// CeilingMultiplier fixes the upper negotiation bound relative to the floor
// price. Offer-bounds checking recomputes the same formula via CeilingFor, so
// the two always agree.
const CeilingMultiplier = 2.5

// CleaningParams are the pricing inputs for a cleaning order.
type CleaningParams struct {
	SurfaceM2 int
	CleanType enums.CleanType
	TeamType  enums.TeamType
}

// CookingParams are the pricing inputs for a cooking order.
type CookingParams struct {
	Guests int
}

// ChildcareParams are the pricing inputs for a childcare order.
type ChildcareParams struct {
	Children int
	Hours    int
}

// Params is a tagged union keyed by ServiceType; exactly the variant matching
// the tag must be set.
type Params struct {
	ServiceType enums.ServiceType
	Cleaning    *CleaningParams
	Cooking     *CookingParams
	Childcare   *ChildcareParams
}

// DurationRange bounds the expected service duration in minutes.
type DurationRange struct {
	MinMinutes int `json:"min_minutes"`
	MaxMinutes int `json:"max_minutes"`
}

// Quote is the oracle's output: the floor price anchoring negotiation, the
// ceiling derived from it, and the expected duration.
type Quote struct {
	FloorPrice int           `json:"floor_price"`
	Ceiling    int           `json:"ceiling"`
	Duration   DurationRange `json:"duration"`
}

// Oracle computes deterministic quotes from service parameters.
type Oracle interface {
	ComputePrice(params Params) (Quote, error)
}

// Calculator is the default deterministic Oracle implementation.
type Calculator struct{}

// NewCalculator returns the default pricing oracle.
func NewCalculator() Calculator {
	return Calculator{}
}

// CeilingFor derives the negotiation ceiling from a floor price.
func CeilingFor(floorPrice int) int {
	return int(math.Round(float64(floorPrice) * CeilingMultiplier))
}

// ComputePrice returns the quote for the given parameters. It fails with a
// validation error when the variant does not match the tag or a value is out
// of range.
func (Calculator) ComputePrice(params Params) (Quote, error) {
	switch params.ServiceType {
	case enums.ServiceTypeCleaning:
		return cleaningQuote(params.Cleaning)
	case enums.ServiceTypeCooking:
		return cookingQuote(params.Cooking)
	case enums.ServiceTypeChildcare:
		return childcareQuote(params.Childcare)
	default:
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported service type %q", params.ServiceType))
	}
}

func cleaningQuote(p *CleaningParams) (Quote, error) {
	if p == nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "cleaning parameters required")
	}
	if p.SurfaceM2 <= 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "surface must be positive")
	}
	if !p.CleanType.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid clean type %q", p.CleanType))
	}
	if !p.TeamType.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid team type %q", p.TeamType))
	}

	ratePerM2 := 2
	if p.CleanType == enums.CleanTypeDeep {
		ratePerM2 = 3
	}
	floor := 20 + p.SurfaceM2*ratePerM2
	if p.TeamType == enums.TeamTypeCrew {
		floor = floor * 5 / 4
	}

	minutes := p.SurfaceM2 * 2
	if minutes < 60 {
		minutes = 60
	}
	return finishQuote(floor, DurationRange{MinMinutes: minutes, MaxMinutes: minutes * 3 / 2}), nil
}

func cookingQuote(p *CookingParams) (Quote, error) {
	if p == nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "cooking parameters required")
	}
	if p.Guests <= 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "guests must be positive")
	}

	floor := 30 + p.Guests*8
	return finishQuote(floor, DurationRange{MinMinutes: 90, MaxMinutes: 180}), nil
}

func childcareQuote(p *ChildcareParams) (Quote, error) {
	if p == nil {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "childcare parameters required")
	}
	if p.Children <= 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "children must be positive")
	}
	if p.Hours <= 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "hours must be positive")
	}

	floor := p.Hours * (12 + 4*p.Children)
	minutes := p.Hours * 60
	return finishQuote(floor, DurationRange{MinMinutes: minutes, MaxMinutes: minutes}), nil
}

func finishQuote(floor int, duration DurationRange) Quote {
	return Quote{
		FloorPrice: floor,
		Ceiling:    CeilingFor(floor),
		Duration:   duration,
	}
}
