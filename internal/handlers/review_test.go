package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tourbook/internal/models"
)

func TestFoldRatingStatsEmpty(t *testing.T) {
	quantity, average := foldRatingStats(nil)

	assert.Equal(t, 0, quantity)
	assert.Equal(t, models.DefaultRatingsAverage, average)
}

func TestFoldRatingStatsRoundsToOneDecimal(t *testing.T) {
	quantity, average := foldRatingStats([]ratingStats{
		{Quantity: 3, Average: 4.666666666},
	})

	assert.Equal(t, 3, quantity)
	assert.Equal(t, 4.7, average)
}

func TestFoldRatingStatsKeepsExactAverage(t *testing.T) {
	quantity, average := foldRatingStats([]ratingStats{
		{Quantity: 2, Average: 4.5},
	})

	assert.Equal(t, 2, quantity)
	assert.Equal(t, 4.5, average)
}
