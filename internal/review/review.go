package review

import (
	"context"
	"fmt"

	"github.com/yusakitchen/reviewboard/internal/models"
	"github.com/yusakitchen/reviewboard/internal/monitoring"
	"github.com/yusakitchen/reviewboard/internal/validation"
)

// Store is the relational access the review service needs
type Store interface {
	InsertReview(ctx context.Context, review *models.NewReview) (int64, error)
	ListReviews(ctx context.Context) ([]models.Review, error)
}

// Service handles review operations
type Service struct {
	store Store
}

// NewService creates a new review service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and stores a review, returning its id.
// Submitting the same body twice creates two reviews.
func (s *Service) Create(ctx context.Context, req *models.CreateReviewRequest) (int64, error) {
	review, err := validation.Review(req)
	if err != nil {
		return 0, err
	}

	id, err := s.store.InsertReview(ctx, review)
	if err != nil {
		return 0, fmt.Errorf("failed to create review: %w", err)
	}

	monitoring.RecordReviewCreated()
	return id, nil
}

// List returns every review, newest first
func (s *Service) List(ctx context.Context) ([]models.Review, error) {
	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}
