package handlers

import (
	"strings"
	"testing"
)

func TestValidateTourPricing(t *testing.T) {
	cases := []struct {
		name     string
		price    float64
		discount float64
		wantErr  string
	}{
		{name: "no discount", price: 100, discount: 0},
		{name: "discount below price", price: 100, discount: 50},
		{name: "discount just below price", price: 100, discount: 99.99},
		{name: "negative discount", price: 100, discount: -10, wantErr: "greater than 0"},
		{name: "discount equal to price", price: 100, discount: 100, wantErr: "below regular price"},
		{name: "discount above price", price: 100, discount: 150, wantErr: "below regular price"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTourPricing(tc.price, tc.discount)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestValidateTourPricingMessageMentionsBothPrices(t *testing.T) {
	err := validateTourPricing(100, 150)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "150") || !strings.Contains(err.Error(), "100") {
		t.Fatalf("message should mention both prices, got %q", err.Error())
	}
}

func TestResolveTourPricing(t *testing.T) {
	price := func(v float64) *float64 { return &v }

	cases := []struct {
		name             string
		existingPrice    float64
		existingDiscount float64
		patch            tourPricingPatch
		wantErr          bool
	}{
		{
			name:          "raise discount above stored price",
			existingPrice: 100,
			patch:         tourPricingPatch{PriceDiscount: price(150)},
			wantErr:       true,
		},
		{
			name:          "valid discount against stored price",
			existingPrice: 100,
			patch:         tourPricingPatch{PriceDiscount: price(50)},
		},
		{
			name:             "lower price below stored discount",
			existingPrice:    500,
			existingDiscount: 400,
			patch:            tourPricingPatch{Price: price(300)},
			wantErr:          true,
		},
		{
			name:             "raise price above stored discount",
			existingPrice:    500,
			existingDiscount: 400,
			patch:            tourPricingPatch{Price: price(600)},
		},
		{
			name:          "empty patch keeps valid document valid",
			existingPrice: 100,
			patch:         tourPricingPatch{},
		},
		{
			name:          "price set to zero",
			existingPrice: 100,
			patch:         tourPricingPatch{Price: price(0)},
			wantErr:       true,
		},
		{
			name:             "clear discount on update",
			existingPrice:    100,
			existingDiscount: 90,
			patch:            tourPricingPatch{PriceDiscount: price(0)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := resolveTourPricing(tc.existingPrice, tc.existingDiscount, tc.patch)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}
