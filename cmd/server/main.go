package main

//	@title			CSI Showcase API
//	@version		1.0
//	@description	Student project portfolio: gallery, submissions, review workflow and admin back-office.
//	@schemes		http https
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	CookieAuth
//	@in							cookie
//	@name						csi_auth_token
//	@description				Session token set by /auth/login

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token as "Bearer <token>"

//	@securityDefinitions.apikey	AdminSecret
//	@in							header
//	@name						admin_secret_key
//	@description				Static admin key required on /admin routes

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/csi-showcase/showcase/internal/bootstrap"
	"github.com/csi-showcase/showcase/internal/config"
	"github.com/csi-showcase/showcase/internal/modules/handler"
	"github.com/csi-showcase/showcase/internal/modules/service"
	"github.com/csi-showcase/showcase/internal/pkg/tokens"
	"github.com/csi-showcase/showcase/internal/router"
	"github.com/csi-showcase/showcase/internal/telemetry"
)

func main() {
	// build dependency injection container
	inj := bootstrap.BuildContainer()

	cfg := do.MustInvoke[*config.Config](inj)
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	if err := ensureSecrets(cfg, log); err != nil {
		log.Sugar().Fatalw("failed to generate secrets", "err", err)
	}

	// Setup OpenTelemetry tracing (using configuration system)
	tp, err := telemetry.SetupTracing(cfg)
	if err != nil {
		log.Sugar().Warnw("failed to setup tracing, continuing without tracing", "err", err)
	} else if tp != nil {
		log.Sugar().Infow("OpenTelemetry tracing enabled", "endpoint", cfg.Telemetry.OtlpEndpoint)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				log.Sugar().Errorw("failed to shutdown tracer", "err", err)
			}
		}()
	}

	// init gin
	gin.SetMode(cfg.App.Env)

	engine := router.NewRouter(router.RouterDeps{
		Config:         cfg,
		Log:            log,
		AuthService:    do.MustInvoke[service.AuthService](inj),
		AuthHandler:    do.MustInvoke[*handler.AuthHandler](inj),
		ProjectHandler: do.MustInvoke[*handler.ProjectHandler](inj),
		FileHandler:    do.MustInvoke[*handler.FileHandler](inj),
		ReviewHandler:  do.MustInvoke[*handler.ReviewHandler](inj),
		UserHandler:    do.MustInvoke[*handler.UserHandler](inj),
		StatsHandler:   do.MustInvoke[*handler.StatsHandler](inj),
	})

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Sugar().Infow("starting http server", "addr", addr)
		log.Sugar().Infow("swagger url", "url", addr+"/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Sugar().Fatalw("listen error", "err", err)
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Sugar().Errorw("server shutdown", "err", err)
	}
	if err := inj.Shutdown(); err != nil {
		log.Sugar().Warnw("container shutdown", "err", err)
	}
	log.Sugar().Info("server exited")
}

// ensureSecrets fills in secrets missing from the configuration. Generated
// values only live for this process: sessions and the admin key change on
// every restart.
func ensureSecrets(cfg *config.Config, log *zap.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		s, err := tokens.NewSigningKey()
		if err != nil {
			return err
		}
		cfg.Auth.JWTSecret = s
		log.Sugar().Warnw("auth.jwtSecret not set, using an ephemeral signing key")
	}
	if cfg.Auth.AdminSecretKey == "" {
		s, err := tokens.NewAdminKey()
		if err != nil {
			return err
		}
		cfg.Auth.AdminSecretKey = s
		log.Sugar().Warnw("auth.adminSecretKey not set, generated one", "admin_secret_key", s)
	}
	return nil
}
