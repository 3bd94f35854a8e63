package controllers

import (
	"net/http"

	"github.com/serviplace/serviplace-backend/api/responses"
	"github.com/serviplace/serviplace-backend/api/validators"
	"github.com/serviplace/serviplace-backend/internal/pricing"
	"github.com/serviplace/serviplace-backend/pkg/enums"
	pkgerrors "github.com/serviplace/serviplace-backend/pkg/errors"
	"github.com/serviplace/serviplace-backend/pkg/logger"
)

type estimateRequest struct {
	ServiceType string `json:"service_type" validate:"required"`

	SurfaceM2 *int    `json:"surface_m2,omitempty"`
	CleanType *string `json:"clean_type,omitempty"`
	TeamType  *string `json:"team_type,omitempty"`

	Guests *int `json:"guests,omitempty"`

	Children *int `json:"children,omitempty"`
	Hours    *int `json:"hours,omitempty"`
}

// PricingEstimate quotes an order without creating one. The same oracle runs
// at order creation, so the floor returned here is the floor the order gets.
func PricingEstimate(oracle pricing.Oracle, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if oracle == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing oracle unavailable"))
			return
		}

		var body estimateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := body.toParams()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := oracle.ComputePrice(params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

func (req estimateRequest) toParams() (pricing.Params, error) {
	serviceType, err := enums.ParseServiceType(req.ServiceType)
	if err != nil {
		return pricing.Params{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	params := pricing.Params{ServiceType: serviceType}
	switch serviceType {
	case enums.ServiceTypeCleaning:
		if req.SurfaceM2 == nil || req.CleanType == nil || req.TeamType == nil {
			return pricing.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "surface_m2, clean_type and team_type are required for cleaning")
		}
		cleanType, err := enums.ParseCleanType(*req.CleanType)
		if err != nil {
			return pricing.Params{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		teamType, err := enums.ParseTeamType(*req.TeamType)
		if err != nil {
			return pricing.Params{}, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		params.Cleaning = &pricing.CleaningParams{
			SurfaceM2: *req.SurfaceM2,
			CleanType: cleanType,
			TeamType:  teamType,
		}
	case enums.ServiceTypeCooking:
		if req.Guests == nil {
			return pricing.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "guests is required for cooking")
		}
		params.Cooking = &pricing.CookingParams{Guests: *req.Guests}
	case enums.ServiceTypeChildcare:
		if req.Children == nil || req.Hours == nil {
			return pricing.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "children and hours are required for childcare")
		}
		params.Childcare = &pricing.ChildcareParams{Children: *req.Children, Hours: *req.Hours}
	}
	return params, nil
}
