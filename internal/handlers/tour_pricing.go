package handlers

import (
	"fmt"

	"tourbook/internal/apperr"
)

type tourPricingPatch struct {
	Price         *float64
	PriceDiscount *float64
}

// validateTourPricing enforces that a discount, when set, stays strictly
// below the list price.
func validateTourPricing(price, priceDiscount float64) error {
	if priceDiscount == 0 {
		return nil
	}
	if priceDiscount < 0 {
		return apperr.BadRequest("priceDiscount must be greater than 0")
	}
	if priceDiscount >= price {
		return apperr.BadRequest(fmt.Sprintf(
			"Discount price (%v) should be below regular price (%v)", priceDiscount, price))
	}
	return nil
}

// resolveTourPricing validates a partial update against the stored document:
// fields absent from the patch keep their existing values, and the combined
// result has to satisfy the discount invariant again.
func resolveTourPricing(existingPrice, existingDiscount float64, patch tourPricingPatch) error {
	price := existingPrice
	if patch.Price != nil {
		price = *patch.Price
	}

	discount := existingDiscount
	if patch.PriceDiscount != nil {
		discount = *patch.PriceDiscount
	}

	if price <= 0 {
		return apperr.BadRequest("price must be greater than 0")
	}

	return validateTourPricing(price, discount)
}
