package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lexflow/lexflow-api/internal/bootstrap"
	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/lexflow/lexflow-api/internal/infra/cache"
	dbpkg "github.com/lexflow/lexflow-api/internal/infra/db"
	"github.com/lexflow/lexflow-api/internal/infra/queue"
	"github.com/lexflow/lexflow-api/internal/metrics"
	"github.com/lexflow/lexflow-api/internal/middleware"
	"github.com/lexflow/lexflow-api/internal/modules/handler"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
	"github.com/lexflow/lexflow-api/internal/realtime"
	"github.com/lexflow/lexflow-api/internal/router"
	"github.com/lexflow/lexflow-api/internal/telemetry"
	"github.com/lexflow/lexflow-api/internal/worker"
)

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, realtime relay and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override app.port")
	return cmd
}

func serve(parent context.Context, port int) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// build dependency injection container
	inj := bootstrap.BuildContainer()

	cfg, err := do.Invoke[*config.Config](inj)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.App.Port = port
	}
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	db, err := do.Invoke[*gorm.DB](inj)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	rdb := do.MustInvoke[*redis.Client](inj)
	if _, err := do.Invoke[*jwtutil.Manager](inj); err != nil {
		return err
	}

	// Setup OpenTelemetry tracing (using configuration system)
	tp, err := telemetry.SetupTracing(ctx, cfg)
	if err != nil {
		log.Warn("failed to setup tracing, continuing without tracing", zap.Error(err))
	} else if tp != nil {
		log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.Telemetry.OtlpEndpoint))
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(sctx); err != nil {
				log.Error("failed to shutdown tracer", zap.Error(err))
			}
		}()

		// plugins need the tracer provider in place
		if err := dbpkg.RegisterOpenTelemetryPlugin(db); err != nil {
			log.Warn("GORM OpenTelemetry plugin not registered", zap.Error(err))
		}
		if rdb != nil {
			if err := cache.RegisterOpenTelemetryPlugin(rdb); err != nil {
				log.Warn("Redis OpenTelemetry plugin not registered", zap.Error(err))
			}
		}
	}

	// init gin
	gin.SetMode(cfg.App.Env)

	engine := router.NewRouter(router.RouterDeps{
		Config:               cfg,
		Log:                  log,
		Metrics:              do.MustInvoke[*metrics.Metrics](inj),
		Limiter:              do.MustInvoke[*middleware.RateLimiter](inj),
		Auth:                 do.MustInvoke[service.AuthService](inj),
		Hub:                  do.MustInvoke[*realtime.Hub](inj),
		AuthHandler:          do.MustInvoke[*handler.AuthHandler](inj),
		ProjectHandler:       do.MustInvoke[*handler.ProjectHandler](inj),
		CollaborationHandler: do.MustInvoke[*handler.CollaborationHandler](inj),
		PersonalHandler:      do.MustInvoke[*handler.PersonalHandler](inj),
		InsightHandler:       do.MustInvoke[*handler.InsightHandler](inj),
		SyncHandler:          do.MustInvoke[*handler.SyncHandler](inj),
	})

	scheduler, err := do.Invoke[*worker.Scheduler](inj)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}
	scheduler.Start()

	consumerDone := make(chan struct{})
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	if consumer := do.MustInvoke[*worker.ActivityConsumer](inj); consumer != nil {
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error("activity consumer exited", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	addr := fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", addr))
		log.Info("swagger url", zap.String("url", addr+"/swagger/index.html"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("listen error", zap.Error(err))
		}
	}

	// graceful shutdown: http, cron, consumer, broker
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	scheduler.Stop(sctx)
	stopConsumer()
	<-consumerDone
	if pub := do.MustInvoke[*queue.Publisher](inj); pub != nil {
		_ = pub.Close()
	}
	if err := inj.Shutdown(); err != nil {
		log.Warn("container shutdown", zap.Error(err))
	}
	log.Info("server exited")
	return nil
}
