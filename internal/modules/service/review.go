package service

import (
	"context"
	"strings"

	"github.com/csi-showcase/showcase/internal/infra/cache"
	"github.com/csi-showcase/showcase/internal/infra/queue"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var reviewDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "showcase_review_decisions_total",
	Help: "Project review decisions by resulting status",
}, []string{"status"})

type ReviewService interface {
	Review(ctx context.Context, in ReviewInput) (*model.ProjectReview, error)
	History(ctx context.Context, projectID uuid.UUID, actor Actor) ([]model.ProjectReview, error)
}

type ReviewInput struct {
	ProjectID uuid.UUID
	AdminID   uuid.UUID
	Status    model.ProjectStatus
	Comment   string
}

type reviewService struct {
	projects repo.ProjectRepo
	effects
}

func NewReviewService(projects repo.ProjectRepo, pub queue.EventPublisher, c cache.Store, log *zap.Logger) ReviewService {
	return &reviewService{
		projects: projects,
		effects:  effects{pub: pub, cache: c, log: log},
	}
}

// Review applies an approve or reject decision to a pending project.
func (s *reviewService) Review(ctx context.Context, in ReviewInput) (*model.ProjectReview, error) {
	if in.Status != model.StatusApproved && in.Status != model.StatusRejected {
		return nil, ErrInvalidDecision
	}
	comment := strings.TrimSpace(in.Comment)
	if in.Status == model.StatusRejected && comment == "" {
		return nil, ErrRejectReasonRequired
	}

	p, err := s.projects.Get(ctx, in.ProjectID)
	if err != nil {
		return nil, wrapRepoErr("get project", err)
	}
	if !p.Status.CanTransitionTo(in.Status) {
		return nil, ErrInvalidTransition
	}

	rv := &model.ProjectReview{
		ProjectID: p.ID,
		AdminID:   in.AdminID,
		Status:    in.Status,
		Comment:   comment,
	}
	if err := s.projects.SetStatusWithReview(ctx, rv); err != nil {
		return nil, wrapRepoErr("review project", err)
	}
	reviewDecisions.WithLabelValues(string(in.Status)).Inc()

	p.Status = in.Status
	s.publish(ctx, queue.KeyProjectReviewed, p, in.AdminID, comment)
	s.invalidateStats(ctx)
	return rv, nil
}

// History returns the review trail, oldest first. Members of the project and
// administrators may read it.
func (s *reviewService) History(ctx context.Context, projectID uuid.UUID, actor Actor) ([]model.ProjectReview, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, wrapRepoErr("get project", err)
	}
	if !actor.canSee(p) {
		return nil, ErrForbidden
	}
	return s.projects.ListReviews(ctx, projectID)
}
