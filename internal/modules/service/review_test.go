package service

import (
	"context"
	"testing"

	"github.com/csi-showcase/showcase/internal/infra/queue"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReviewService_Review(t *testing.T) {
	ctx := context.Background()
	pid := uuid.New()
	admin := uuid.New()

	tests := []struct {
		name    string
		status  model.ProjectStatus
		in      ReviewInput
		setup   func(*MockProjectRepo, *MockPublisher, *MockStore)
		wantErr error
	}{
		{
			name:    "reject needs a comment",
			status:  model.StatusPending,
			in:      ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusRejected, Comment: "   "},
			setup:   func(*MockProjectRepo, *MockPublisher, *MockStore) {},
			wantErr: ErrRejectReasonRequired,
		},
		{
			name:    "pending is not a decision",
			status:  model.StatusPending,
			in:      ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusPending},
			setup:   func(*MockProjectRepo, *MockPublisher, *MockStore) {},
			wantErr: ErrInvalidDecision,
		},
		{
			name:    "approved is terminal",
			status:  model.StatusApproved,
			in:      ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusRejected, Comment: "late"},
			setup:   func(*MockProjectRepo, *MockPublisher, *MockStore) {},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "rejected is terminal",
			status:  model.StatusRejected,
			in:      ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusApproved},
			setup:   func(*MockProjectRepo, *MockPublisher, *MockStore) {},
			wantErr: ErrInvalidTransition,
		},
		{
			name:   "concurrent review loses",
			status: model.StatusPending,
			in:     ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusApproved},
			setup: func(r *MockProjectRepo, _ *MockPublisher, _ *MockStore) {
				r.On("SetStatusWithReview", ctx, mock.AnythingOfType("*model.ProjectReview")).Return(repo.ErrConflict)
			},
			wantErr: ErrInvalidTransition,
		},
		{
			name:   "approve",
			status: model.StatusPending,
			in:     ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusApproved},
			setup: func(r *MockProjectRepo, p *MockPublisher, c *MockStore) {
				r.On("SetStatusWithReview", ctx, mock.MatchedBy(func(rv *model.ProjectReview) bool {
					return rv.ProjectID == pid && rv.AdminID == admin && rv.Status == model.StatusApproved
				})).Return(nil)
				p.On("PublishJSON", ctx, queue.KeyProjectReviewed, mock.MatchedBy(func(ev ProjectEvent) bool {
					return ev.Status == model.StatusApproved && ev.ActorID == admin
				})).Return(nil)
				c.On("Delete", ctx, []string{statsCacheKey}).Return(nil)
			},
		},
		{
			name:   "reject with trimmed comment",
			status: model.StatusPending,
			in:     ReviewInput{ProjectID: pid, AdminID: admin, Status: model.StatusRejected, Comment: "  missing poster credits "},
			setup: func(r *MockProjectRepo, p *MockPublisher, c *MockStore) {
				r.On("SetStatusWithReview", ctx, mock.MatchedBy(func(rv *model.ProjectReview) bool {
					return rv.Comment == "missing poster credits"
				})).Return(nil)
				p.On("PublishJSON", ctx, queue.KeyProjectReviewed, mock.Anything).Return(assert.AnError)
				c.On("Delete", ctx, []string{statsCacheKey}).Return(nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projects := &MockProjectRepo{}
			pub := &MockPublisher{}
			store := &MockStore{}
			projects.On("Get", ctx, pid).Return(&model.Project{ID: pid, Status: tt.status}, nil)
			tt.setup(projects, pub, store)

			svc := NewReviewService(projects, pub, store, zap.NewNop())
			rv, err := svc.Review(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in.Status, rv.Status)
			projects.AssertExpectations(t)
			pub.AssertExpectations(t)
			store.AssertExpectations(t)
		})
	}
}

func TestReviewService_History(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	pid := uuid.New()
	projects := &MockProjectRepo{}
	projects.On("Get", ctx, pid).Return(&model.Project{ID: pid, OwnerID: owner}, nil)
	projects.On("ListReviews", ctx, pid).Return([]model.ProjectReview{{ProjectID: pid, Status: model.StatusRejected, Comment: "fix"}}, nil)

	svc := NewReviewService(projects, nil, nil, zap.NewNop())

	_, err := svc.History(ctx, pid, Actor{ID: uuid.New(), Role: model.RoleStudent})
	assert.ErrorIs(t, err, ErrForbidden)

	items, err := svc.History(ctx, pid, Actor{ID: owner, Role: model.RoleStudent})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fix", items[0].Comment)
}
