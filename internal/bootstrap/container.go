package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/lexflow/lexflow-api/internal/infra/blob"
	"github.com/lexflow/lexflow-api/internal/infra/cache"
	"github.com/lexflow/lexflow-api/internal/infra/db"
	"github.com/lexflow/lexflow-api/internal/infra/httpclient"
	"github.com/lexflow/lexflow-api/internal/infra/logger"
	"github.com/lexflow/lexflow-api/internal/infra/queue"
	"github.com/lexflow/lexflow-api/internal/metrics"
	"github.com/lexflow/lexflow-api/internal/middleware"
	"github.com/lexflow/lexflow-api/internal/modules/handler"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/repo"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
	"github.com/lexflow/lexflow-api/internal/pkg/secretbox"
	"github.com/lexflow/lexflow-api/internal/realtime"
	"github.com/lexflow/lexflow-api/internal/worker"
)

const (
	boxCloudTokens  = "cloud-tokens"
	boxIntegrations = "integrations"
	sinkRecorder    = "activity-recorder"
)

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

	do.Provide(inj, func(i *do.Injector) (*metrics.Metrics, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return metrics.New(cfg.Metrics.Prefix), nil
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		// [optional] auto migrate
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(d); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// analytics reads the same pool through sqlx
	do.Provide(inj, func(i *do.Injector) (*sqlx.DB, error) {
		d := do.MustInvoke[*gorm.DB](i)
		sqlDB, err := d.DB()
		if err != nil {
			return nil, err
		}
		return sqlx.NewDb(sqlDB, db.DriverName(d)), nil
	})

	// Redis, nil when not configured
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		return cache.New(do.MustInvoke[*config.Config](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (cache.Store, error) {
		if rdb := do.MustInvoke[*redis.Client](i); rdb != nil {
			return cache.NewRedisStore(rdb), nil
		}
		return cache.NewMemoryStore(), nil
	})

	// RabbitMQ Connection, nil when the broker is unreachable
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		if cfg.RabbitMQ.URL == "" {
			return nil, nil
		}
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			log.Warn("rabbitmq unavailable, activity is written directly", zap.Error(err))
			return nil, nil
		}
		return conn, nil
	})

	// S3 archive, nil when no bucket is configured
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !blob.Enabled(cfg) {
			return nil, nil
		}
		return blob.NewS3(context.Background(), cfg)
	})

	do.Provide(inj, func(i *do.Injector) (*jwtutil.Manager, error) {
		return newTokenManager(do.MustInvoke[*config.Config](i))
	})
	for _, purpose := range []string{boxCloudTokens, boxIntegrations} {
		do.ProvideNamed(inj, purpose, func(i *do.Injector) (*secretbox.Box, error) {
			cfg := do.MustInvoke[*config.Config](i)
			master := cfg.Auth.EncryptionKey
			if master == "" {
				master = cfg.Auth.JWTSecret
			}
			return secretbox.New(master, purpose)
		})
	}

	provideRepos(inj)
	provideRealtime(inj)
	provideServices(inj)
	provideHandlers(inj)
	provideWorkers(inj)

	return inj
}

func newTokenManager(cfg *config.Config) (*jwtutil.Manager, error) {
	m, err := jwtutil.NewManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("auth.jwt_secret: %w", err)
	}
	return m, nil
}

func provideRepos(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (repo.UserRepo, error) {
		return repo.NewUserRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.CollaborationRepo, error) {
		return repo.NewCollaborationRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.QuickNoteRepo, error) {
		return repo.NewQuickNoteRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.PomodoroRepo, error) {
		return repo.NewPomodoroRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.GamificationRepo, error) {
		return repo.NewGamificationRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.StudyVideoRepo, error) {
		return repo.NewStudyVideoRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.TelosRepo, error) {
		return repo.NewTelosRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.CloudSyncRepo, error) {
		return repo.NewCloudSyncRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.IntegrationRepo, error) {
		return repo.NewIntegrationRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.AnalyticsRepo, error) {
		return repo.NewAnalyticsRepo(do.MustInvoke[*sqlx.DB](i)), nil
	})
}

func provideRealtime(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (*realtime.Hub, error) {
		// the project service depends on the hub through the activity sink,
		// so access checks resolve it on first use
		access := realtime.AccessFunc(func(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
			return do.MustInvoke[service.ProjectService](i).CanAccess(ctx, tenantID, userID, projectID)
		})
		return realtime.NewHub(access, do.MustInvoke[*zap.Logger](i),
			realtime.WithConnectionGauge(do.MustInvoke[*metrics.Metrics](i).WSConnections),
		), nil
	})

	do.ProvideNamed(inj, sinkRecorder, func(i *do.Injector) (service.ActivitySink, error) {
		return service.NewActivityRecorder(
			do.MustInvoke[repo.CollaborationRepo](i),
			do.MustInvoke[*realtime.Hub](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(inj, func(i *do.Injector) (*queue.Publisher, error) {
		conn := do.MustInvoke[*amqp.Connection](i)
		if conn == nil {
			return nil, nil
		}
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		pub, err := queue.NewPublisher(conn, cfg.RabbitMQ.ActivityQueue, log)
		if err != nil {
			log.Warn("activity publisher unavailable", zap.Error(err))
			return nil, nil
		}
		return pub, nil
	})

	do.Provide(inj, func(i *do.Injector) (service.ActivitySink, error) {
		var pub worker.JSONPublisher
		if p := do.MustInvoke[*queue.Publisher](i); p != nil {
			pub = p
		}
		return worker.NewQueueSink(
			pub,
			do.MustInvokeNamed[service.ActivitySink](i, sinkRecorder),
			do.MustInvoke[*metrics.Metrics](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
}

func provideServices(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (service.AuthService, error) {
		return service.NewAuthService(
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[*jwtutil.Manager](i),
			do.MustInvoke[cache.Store](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.GamificationService, error) {
		return service.NewGamificationService(
			do.MustInvoke[repo.GamificationRepo](i),
			do.MustInvoke[repo.PomodoroRepo](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[service.GamificationService](i),
			do.MustInvoke[service.ActivitySink](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.CollaborationService, error) {
		return service.NewCollaborationService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.CollaborationRepo](i),
			do.MustInvoke[service.ActivitySink](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.QuickNoteService, error) {
		return service.NewQuickNoteService(do.MustInvoke[repo.QuickNoteRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.PomodoroService, error) {
		return service.NewPomodoroService(
			do.MustInvoke[repo.PomodoroRepo](i),
			do.MustInvoke[service.GamificationService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.StudyVideoService, error) {
		return service.NewStudyVideoService(do.MustInvoke[repo.StudyVideoRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AIService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		providers := []service.TextGenerator{
			httpclient.NewGeminiClient(cfg, log),
			httpclient.NewOpenAIClient(cfg, log),
		}
		ttl := time.Duration(cfg.AICacheTTLSeconds()) * time.Second
		return service.NewAIService(providers, do.MustInvoke[cache.Store](i), ttl, log), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.TelosService, error) {
		return service.NewTelosService(
			do.MustInvoke[repo.TelosRepo](i),
			do.MustInvoke[service.AIService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AnalyticsService, error) {
		return service.NewAnalyticsService(do.MustInvoke[repo.AnalyticsRepo](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.CloudSyncService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		drives := map[string]service.CloudDrive{
			model.ProviderGoogleDrive: httpclient.NewGoogleDriveClient(cfg, log),
			model.ProviderDropbox:     httpclient.NewDropboxClient(cfg, log),
			model.ProviderOneDrive:    httpclient.NewOneDriveClient(cfg, log),
		}
		var archiver service.Archiver
		if s3 := do.MustInvoke[*blob.S3Deps](i); s3 != nil {
			archiver = s3
		}
		src := service.SyncSources{
			Projects: do.MustInvoke[repo.ProjectRepo](i),
			Notes:    do.MustInvoke[repo.QuickNoteRepo](i),
			Pomodoro: do.MustInvoke[repo.PomodoroRepo](i),
		}
		return service.NewCloudSyncService(
			do.MustInvoke[repo.CloudSyncRepo](i),
			src,
			drives,
			do.MustInvokeNamed[*secretbox.Box](i, boxCloudTokens),
			archiver,
			log,
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.IntegrationService, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		clients := service.IntegrationClients{
			GitHub:     httpclient.NewGitHubClient(cfg, log),
			Trello:     httpclient.NewTrelloClient(cfg, log),
			Notion:     httpclient.NewNotionClient(cfg, log),
			Capacities: httpclient.NewCapacitiesClient(cfg, log),
		}
		return service.NewIntegrationService(
			do.MustInvoke[repo.IntegrationRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.QuickNoteRepo](i),
			clients,
			do.MustInvokeNamed[*secretbox.Box](i, boxIntegrations),
			cfg.Integrations.ObsidianRoot,
			log,
		), nil
	})
}

func provideHandlers(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (*handler.AuthHandler, error) {
		return handler.NewAuthHandler(do.MustInvoke[service.AuthService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(do.MustInvoke[service.ProjectService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.CollaborationHandler, error) {
		return handler.NewCollaborationHandler(do.MustInvoke[service.CollaborationService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.PersonalHandler, error) {
		return handler.NewPersonalHandler(
			do.MustInvoke[service.QuickNoteService](i),
			do.MustInvoke[service.PomodoroService](i),
			do.MustInvoke[service.GamificationService](i),
			do.MustInvoke[service.StudyVideoService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.InsightHandler, error) {
		return handler.NewInsightHandler(
			do.MustInvoke[service.TelosService](i),
			do.MustInvoke[service.AnalyticsService](i),
			do.MustInvoke[service.AIService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.SyncHandler, error) {
		return handler.NewSyncHandler(
			do.MustInvoke[service.CloudSyncService](i),
			do.MustInvoke[service.IntegrationService](i),
		), nil
	})
}

func provideWorkers(inj *do.Injector) {
	do.Provide(inj, func(i *do.Injector) (*middleware.RateLimiter, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond,
			cfg.RateLimit.Burst,
			do.MustInvoke[*metrics.Metrics](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(inj, func(i *do.Injector) (*worker.Scheduler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		s := worker.NewScheduler(do.MustInvoke[*zap.Logger](i))
		if err := s.AddAutoSync(cfg.Cloud.AutoSyncCron, do.MustInvoke[service.CloudSyncService](i), do.MustInvoke[*metrics.Metrics](i)); err != nil {
			return nil, err
		}
		if err := s.AddCleanup(worker.LimiterCleanupSpec, do.MustInvoke[*middleware.RateLimiter](i), worker.LimiterMaxIdle); err != nil {
			return nil, err
		}
		// redis expires keys itself
		if mem, ok := do.MustInvoke[cache.Store](i).(*cache.MemoryStore); ok {
			if err := s.AddCleanup(worker.CacheCleanupSpec, mem, 0); err != nil {
				return nil, err
			}
		}
		return s, nil
	})

	// nil when there is no broker
	do.Provide(inj, func(i *do.Injector) (*worker.ActivityConsumer, error) {
		conn := do.MustInvoke[*amqp.Connection](i)
		if conn == nil {
			return nil, nil
		}
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		consumer := queue.NewConsumer(conn, cfg.RabbitMQ.ActivityQueue, cfg.RabbitMQ.Prefetch, log)
		return worker.NewActivityConsumer(consumer, do.MustInvokeNamed[service.ActivitySink](i, sinkRecorder), log), nil
	})
}
