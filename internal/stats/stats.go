// Package stats computes the review and save aggregates.
package stats

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/yusakitchen/reviewboard/internal/models"
)

// Store is the relational access the stats service needs
type Store interface {
	ReviewAggregate(ctx context.Context) (models.RatingAggregate, error)
	CountSaves(ctx context.Context) (int64, error)
}

// Service computes site statistics
type Service struct {
	store Store
}

// NewService creates a new stats service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the review count, average rating and save count
func (s *Service) Get(ctx context.Context) (*models.Stats, error) {
	agg, err := s.store.ReviewAggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	saves, err := s.store.CountSaves(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count saves: %w", err)
	}

	return &models.Stats{
		ReviewCount:   agg.Count,
		AverageRating: Mean(agg.Sum, agg.Count),
		SaveCount:     saves,
	}, nil
}

// Mean returns sum/count, or 0 when count is zero
func Mean(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	avg, _ := decimal.NewFromInt(sum).Div(decimal.NewFromInt(count)).Float64()
	return avg
}

// MeanRating averages the ratings of a review list
func MeanRating(reviews []models.Review) float64 {
	var sum int64
	for _, r := range reviews {
		sum += int64(r.Rating)
	}
	return Mean(sum, int64(len(reviews)))
}

// DisplayRating rounds an average to one decimal place and formats it
// with two, e.g. 3.5 -> "3.50" and 4.25 -> "4.30".
func DisplayRating(avg float64) string {
	return roundedRating(avg).StringFixed(2)
}

// FilledStars is the number of whole stars shown for an average
func FilledStars(avg float64) int {
	return int(roundedRating(avg).Floor().IntPart())
}

func roundedRating(avg float64) decimal.Decimal {
	return decimal.NewFromFloat(avg).Round(1)
}
