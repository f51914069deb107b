package service

import (
	"context"
	"time"

	"github.com/csi-showcase/showcase/internal/infra/blob"
	"github.com/csi-showcase/showcase/internal/infra/cache"
	"github.com/csi-showcase/showcase/internal/infra/queue"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const statsCacheKey = "stats:dashboard"

// ProjectEvent is the body published for project lifecycle changes.
type ProjectEvent struct {
	ProjectID uuid.UUID           `json:"project_id"`
	OwnerID   uuid.UUID           `json:"owner_id"`
	ActorID   uuid.UUID           `json:"actor_id"`
	Type      model.ProjectType   `json:"type"`
	Status    model.ProjectStatus `json:"status"`
	Title     string              `json:"title"`
	Comment   string              `json:"comment,omitempty"`
	At        time.Time           `json:"at"`
}

// effects groups the side effects that follow a committed write. None of
// them fail the request; errors are logged.
type effects struct {
	pub   queue.EventPublisher
	cache cache.Store
	blob  blob.Storage
	log   *zap.Logger
}

func (e effects) publish(ctx context.Context, key string, p *model.Project, actor uuid.UUID, comment string) {
	if e.pub == nil {
		return
	}
	ev := ProjectEvent{
		ProjectID: p.ID,
		OwnerID:   p.OwnerID,
		ActorID:   actor,
		Type:      p.Type,
		Status:    p.Status,
		Title:     p.Title,
		Comment:   comment,
		At:        time.Now().UTC(),
	}
	if err := e.pub.PublishJSON(ctx, key, ev); err != nil {
		e.log.Warn("publish project event", zap.String("key", key), zap.String("project_id", p.ID.String()), zap.Error(err))
	}
}

func (e effects) invalidateStats(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Delete(ctx, statsCacheKey); err != nil {
		e.log.Warn("invalidate stats cache", zap.Error(err))
	}
}

func (e effects) removeBlobs(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if err := e.blob.Delete(ctx, k); err != nil {
			e.log.Warn("delete blob", zap.String("key", k), zap.Error(err))
		}
	}
}
