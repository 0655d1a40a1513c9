package reply

import (
	"context"
	"fmt"

	apierrors "github.com/yusakitchen/reviewboard/internal/errors"
	"github.com/yusakitchen/reviewboard/internal/models"
	"github.com/yusakitchen/reviewboard/internal/monitoring"
	"github.com/yusakitchen/reviewboard/internal/validation"
)

// Store is the relational access the reply service needs
type Store interface {
	ReviewExists(ctx context.Context, reviewID int64) (bool, error)
	ReplyExistsForReview(ctx context.Context, reviewID int64) (bool, error)
	InsertReply(ctx context.Context, reviewID int64, text string) (int64, error)
	ListReplies(ctx context.Context) ([]models.Reply, error)
}

// Service handles owner replies to reviews
type Service struct {
	store Store
}

// NewService creates a new reply service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create posts the owner's reply to a review.
//
// The one-reply-per-review rule is a check followed by an insert with no
// isolation between them: two concurrent requests for the same review can
// both pass the check and both insert.
func (s *Service) Create(ctx context.Context, req *models.CreateReplyRequest) (int64, error) {
	if err := validation.Credentials(req.Username, req.Password); err != nil {
		return 0, err
	}

	reviewID, text, err := validation.ReplyFields(req)
	if err != nil {
		return 0, err
	}

	exists, err := s.store.ReviewExists(ctx, reviewID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up review: %w", err)
	}
	if !exists {
		return 0, apierrors.New(apierrors.KindNotFound, "The review you are replying to was not found")
	}

	replied, err := s.store.ReplyExistsForReview(ctx, reviewID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up existing reply: %w", err)
	}
	if replied {
		return 0, apierrors.New(apierrors.KindConflict, "This review already has a reply")
	}

	id, err := s.store.InsertReply(ctx, reviewID, text)
	if err != nil {
		return 0, fmt.Errorf("failed to create reply: %w", err)
	}

	monitoring.RecordReplyCreated()
	return id, nil
}

// List returns every reply, oldest first
func (s *Service) List(ctx context.Context) ([]models.Reply, error) {
	replies, err := s.store.ListReplies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	if replies == nil {
		replies = []models.Reply{}
	}
	return replies, nil
}
