package save

import (
	"context"
	"fmt"

	"github.com/yusakitchen/reviewboard/internal/monitoring"
)

// Store is the relational access the save counter needs
type Store interface {
	InsertSave(ctx context.Context) error
	CountSaves(ctx context.Context) (int64, error)
}

// Service records "save this restaurant" events
type Service struct {
	store Store
}

// NewService creates a new save service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record appends a save event and returns the new total
func (s *Service) Record(ctx context.Context) (int64, error) {
	if err := s.store.InsertSave(ctx); err != nil {
		return 0, fmt.Errorf("failed to record save: %w", err)
	}
	monitoring.RecordSave()

	count, err := s.store.CountSaves(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count saves: %w", err)
	}
	return count, nil
}
