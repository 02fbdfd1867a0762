package services

import (
	"context"

	"github.com/leadhub/apiserver/internal/events"
	"github.com/leadhub/apiserver/types"
	"go.uber.org/zap"
)

// LeadRepository defines persistence operations for leads. Every
// operation is scoped by owner id.
type LeadRepository interface {
	List(ctx context.Context, ownerID int, filter types.LeadFilter, offset, limit int) ([]types.Lead, int, error)
	ListAll(ctx context.Context, ownerID int, filter types.LeadFilter) ([]types.Lead, error)
	Get(ctx context.Context, ownerID, id int) (types.Lead, error)
	Create(ctx context.Context, lead types.Lead) (types.Lead, error)
	Update(ctx context.Context, lead types.Lead) (types.Lead, error)
	Delete(ctx context.Context, ownerID, id int) error
}

// EventPublisher emits lead change events after successful mutations.
type EventPublisher interface {
	LeadChanged(ctx context.Context, eventType string, leadID, ownerID int) error
}

// LeadService encapsulates lead use-cases.
type LeadService struct {
	repo      LeadRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewLeadService(repo LeadRepository, publisher EventPublisher, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{repo: repo, publisher: publisher, logger: logger}
}

// List returns one page of leads plus the total matching count. The
// limit is clamped into [1, 100].
func (s *LeadService) List(ctx context.Context, ownerID int, filter types.LeadFilter, offset, limit int) ([]types.Lead, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, ownerID, filter, offset, limit)
}

func (s *LeadService) Get(ctx context.Context, ownerID, id int) (types.Lead, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *LeadService) Create(ctx context.Context, lead types.Lead) (types.Lead, error) {
	created, err := s.repo.Create(ctx, lead)
	if err != nil {
		return types.Lead{}, err
	}
	s.publish(ctx, events.TypeLeadCreated, created.ID, created.OwnerID)
	return created, nil
}

func (s *LeadService) Update(ctx context.Context, lead types.Lead) (types.Lead, error) {
	updated, err := s.repo.Update(ctx, lead)
	if err != nil {
		return types.Lead{}, err
	}
	s.publish(ctx, events.TypeLeadUpdated, updated.ID, updated.OwnerID)
	return updated, nil
}

func (s *LeadService) Delete(ctx context.Context, ownerID, id int) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.publish(ctx, events.TypeLeadDeleted, id, ownerID)
	return nil
}

// publish is best-effort: the mutation already committed, so a broker
// failure is logged and the request still succeeds.
func (s *LeadService) publish(ctx context.Context, eventType string, leadID, ownerID int) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.LeadChanged(ctx, eventType, leadID, ownerID); err != nil {
		s.logger.Warn("lead event publish failed",
			zap.String("type", eventType),
			zap.Int("leadId", leadID),
			zap.Error(err),
		)
	}
}
