package bootstrap

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/csi-showcase/showcase/internal/config"
	"github.com/csi-showcase/showcase/internal/infra/blob"
	"github.com/csi-showcase/showcase/internal/infra/cache"
	"github.com/csi-showcase/showcase/internal/infra/db"
	"github.com/csi-showcase/showcase/internal/infra/logger"
	"github.com/csi-showcase/showcase/internal/infra/queue"
	"github.com/csi-showcase/showcase/internal/modules/handler"
	"github.com/csi-showcase/showcase/internal/modules/model"
	"github.com/csi-showcase/showcase/internal/modules/repo"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/csi-showcase/showcase/internal/pkg/tokens"
	"github.com/csi-showcase/showcase/internal/pkg/upload"
)

// Models lists every table managed by AutoMigrate.
var Models = []any{
	&model.User{},
	&model.Project{},
	&model.AcademicPaper{},
	&model.Competition{},
	&model.Coursework{},
	&model.ProjectFile{},
	&model.LoginLog{},
	&model.VisitorView{},
	&model.ProjectReview{},
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := d.AutoMigrate(Models...); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		return cache.New(do.MustInvoke[*config.Config](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (cache.Store, error) {
		return cache.NewRedisStore(do.MustInvoke[*redis.Client](i), "csi:"), nil
	})

	// RabbitMQ. Events are optional: without a broker the services publish
	// into a no-op sink.
	do.Provide(inj, func(i *do.Injector) (queue.EventPublisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.RabbitMQ.URL == "" {
			log.Sugar().Infow("rabbitmq url not set, events disabled")
			return queue.Noop{}, nil
		}
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			log.Sugar().Warnw("rabbitmq unavailable, events disabled", "err", err)
			return queue.Noop{}, nil
		}
		pub, err := queue.NewPublisher(conn, cfg.RabbitMQ.Exchange, log)
		if err != nil {
			_ = conn.Close()
			log.Sugar().Warnw("rabbitmq channel failed, events disabled", "err", err)
			return queue.Noop{}, nil
		}
		return pub, nil
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return blob.NewS3(context.Background(), cfg)
	})
	do.Provide(inj, func(i *do.Injector) (blob.Storage, error) {
		return do.MustInvoke[*blob.S3Deps](i), nil
	})

	// tokens
	do.Provide(inj, func(i *do.Injector) (*tokens.Issuer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ttl := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		return tokens.NewIssuer(cfg.Auth.JWTSecret, ttl), nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.UserRepo, error) {
		return repo.NewUserRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.FileRepo, error) {
		return repo.NewFileRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.LogRepo, error) {
		return repo.NewLogRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.StatsRepo, error) {
		return repo.NewStatsRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.AuthService, error) {
		return service.NewAuthService(
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.LogRepo](i),
			do.MustInvoke[*tokens.Issuer](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.UserService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewUserService(
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[blob.Storage](i),
			uploadLimits(cfg, false),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.LogRepo](i),
			do.MustInvoke[blob.Storage](i),
			do.MustInvoke[queue.EventPublisher](i),
			do.MustInvoke[cache.Store](i),
			service.ProjectServiceConfig{
				Limits:       uploadLimits(cfg, false),
				AdminLimits:  uploadLimits(cfg, true),
				ViewDedupTTL: seconds(cfg.Cache.ViewDedupTTLSec, time.Hour),
			},
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.FileService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewFileService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.FileRepo](i),
			do.MustInvoke[blob.Storage](i),
			seconds(cfg.S3.PresignExpireSec, 15*time.Minute),
			cfg.Upload.PublicBaseURL,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ReviewService, error) {
		return service.NewReviewService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[queue.EventPublisher](i),
			do.MustInvoke[cache.Store](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.StatsService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return service.NewStatsService(
			do.MustInvoke[repo.StatsRepo](i),
			do.MustInvoke[repo.LogRepo](i),
			do.MustInvoke[cache.Store](i),
			seconds(cfg.Cache.StatsTTLSec, 5*time.Minute),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.AuthHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return handler.NewAuthHandler(do.MustInvoke[service.AuthService](i), handler.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
			MaxAge: cfg.Auth.TokenTTLHours * 3600,
		}), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(do.MustInvoke[service.ProjectService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.FileHandler, error) {
		return handler.NewFileHandler(do.MustInvoke[service.FileService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ReviewHandler, error) {
		return handler.NewReviewHandler(do.MustInvoke[service.ReviewService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.UserHandler, error) {
		return handler.NewUserHandler(do.MustInvoke[service.UserService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.StatsHandler, error) {
		return handler.NewStatsHandler(do.MustInvoke[service.StatsService](i)), nil
	})

	return inj
}

// uploadLimits applies configured ceilings over the defaults.
func uploadLimits(cfg *config.Config, admin bool) upload.Limits {
	l := upload.DefaultLimits()
	if admin {
		l = upload.AdminLimits()
	}
	if cfg.Upload.MaxImageBytes > 0 {
		l.Image = cfg.Upload.MaxImageBytes
	}
	if cfg.Upload.MaxPDFBytes > 0 {
		l.PDF = cfg.Upload.MaxPDFBytes
	}
	switch {
	case admin && cfg.Upload.MaxVideoBytesAdmin > 0:
		l.Video = cfg.Upload.MaxVideoBytesAdmin
	case !admin && cfg.Upload.MaxVideoBytes > 0:
		l.Video = cfg.Upload.MaxVideoBytes
	}
	return l
}
