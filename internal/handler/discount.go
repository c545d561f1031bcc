package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/iamvazu/smokesignalbbq-sub001/internal/domain/discount"
)

type discountResponse struct {
	Code             string  `json:"code"`
	Type             string  `json:"type"`
	Value            float64 `json:"value"`
	IsFirstOrderOnly bool    `json:"isFirstOrderOnly"`
}

// validateDiscount lets the storefront preview a code before checkout. The
// preview is advisory: eligibility is re-checked inside the checkout
// transaction and can still fail there.
func (h *Handler) validateDiscount(w http.ResponseWriter, r *http.Request) {
	code := discount.Normalize(chi.URLParam(r, "code"))

	c, err := h.discounts.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, discount.ErrInvalid) {
			respondError(w, r, http.StatusNotFound, "invalid discount code")
			return
		}
		zctx.From(r.Context()).Error("discount lookup", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "failed to validate discount code")
		return
	}

	if err := c.Validate(time.Now()); err != nil {
		switch {
		case errors.Is(err, discount.ErrInvalid):
			// Inactive codes are indistinguishable from unknown ones.
			respondError(w, r, http.StatusNotFound, "invalid discount code")
		default:
			respondError(w, r, http.StatusBadRequest, err.Error())
		}
		return
	}

	respondJSON(w, r, http.StatusOK, discountResponse{
		Code:             c.Code,
		Type:             string(c.Type),
		Value:            c.Value.InexactFloat64(),
		IsFirstOrderOnly: c.FirstOrderOnly,
	})
}
