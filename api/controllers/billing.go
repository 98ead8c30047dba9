package controllers

import (
	"net/http"

	"github.com/tradeforgehq/tradeforge-backend/api/responses"
	"github.com/tradeforgehq/tradeforge-backend/api/validators"
	billingsvc "github.com/tradeforgehq/tradeforge-backend/internal/billing"
	pkgerrors "github.com/tradeforgehq/tradeforge-backend/pkg/errors"
	"github.com/tradeforgehq/tradeforge-backend/pkg/logger"
)

type checkoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

// BillingPlans lists the purchasable plans and their price ids.
func BillingPlans(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}
		responses.WriteSuccess(w, svc.Plans(r.Context()))
	}
}

// BillingCheckout creates a checkout session for a subscription purchase,
// binding the user to a billing customer on first use.
func BillingCheckout(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.StartCheckout(r.Context(), userID, body.PriceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{URL: url})
	}
}

// BillingPortal creates a billing portal session for subscription management.
func BillingPortal(svc billingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := authenticatedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		url, err := svc.StartPortal(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, sessionResponse{URL: url})
	}
}
