package bootstrap

import (
	"context"
	"log"

	"dota-report-be/internal/analysis"
	"dota-report-be/internal/config"
	"dota-report-be/internal/controller"
	"dota-report-be/internal/handler"
	"dota-report-be/internal/opendota"
	"dota-report-be/internal/pkg/logger"
	"dota-report-be/internal/querysession"
	"dota-report-be/internal/repository/contract"
	"dota-report-be/internal/repository/implementation"
	"dota-report-be/internal/repository/memory"
	"dota-report-be/internal/service"
	"dota-report-be/internal/websocket"

	pktNats "dota-report-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ReportController   controller.IReportController
	MetadataController controller.IMetadataController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	FrontendHandler *handler.FrontendHandler
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	openDota *opendota.Client
	pubSub   *gochannel.GoChannel
	natsPub  *pktNats.Publisher
	rdb      *redis.Client
}

// NewContainer wires the application. db is only used when the OpenDota
// cache lives in postgres and may be nil otherwise.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// NATS
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "NATS unavailable, report events stay in-process", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = pub
		}
	}

	// 4. Repositories
	var responseCache contract.ResponseCacheRepository
	var err error
	if cfg.OpenDota.CacheBackend == "postgres" {
		if db == nil {
			log.Fatalf("[FATAL] OPENDOTA_CACHE_BACKEND=postgres requires DB_CONNECTION_STRING")
		}
		responseCache, err = implementation.NewGormResponseCacheRepository(db)
	} else {
		responseCache, err = implementation.NewFileResponseCacheRepository(cfg.OpenDota.CacheFile)
	}
	if err != nil {
		log.Fatalf("[FATAL] Failed to open OpenDota response cache: %v", err)
	}
	log.Printf("[INFO] Using OpenDota cache backend: %s", cfg.OpenDota.CacheBackend)

	var stateRepo contract.ComputationStateRepository
	if cfg.App.StateBackend == "redis" && rdb != nil {
		stateRepo = implementation.NewRedisComputationStateRepository(rdb)
	} else {
		stateRepo = memory.NewComputationStateRepository()
	}
	log.Printf("[INFO] Using computation state backend: %s", cfg.App.StateBackend)

	// 5. Services
	openDotaClient := opendota.NewClient(opendota.Options{
		BaseURL:    cfg.OpenDota.BaseURL,
		RetryWait:  cfg.OpenDota.RetryWait,
		FlushEvery: cfg.OpenDota.FlushEvery,
		Timeout:    cfg.OpenDota.RequestTimeout,
	}, responseCache, sysLogger)

	eventService := service.NewEventService(service.ReportEventsTopic, pubSub)
	metadataService := service.NewMetadataService(openDotaClient)
	reportService := service.NewReportService(
		analysis.NewAnalyzer(openDotaClient),
		metadataService,
		stateRepo,
		eventService,
		sysLogger,
	)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.FrontendLogPath)
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	sinks := []service.EventSink{wsHub}
	if natsPub != nil {
		sinks = append(sinks, natsPub)
	}
	consumerService := service.NewConsumerService(pubSub, service.ReportEventsTopic, sysLogger, sinks...)

	frontendHandler := handler.NewFrontendHandler(wsHub, reportService, querysession.Options{
		PollInitialDelay: cfg.Session.PollInitialDelay,
		PollInterval:     cfg.Session.PollInterval,
		NoticeTimeout:    cfg.Session.NoticeTimeout,
	}, wsLogger)

	// 6. Controllers
	return &Container{
		ReportController:   controller.NewReportController(reportService),
		MetadataController: controller.NewMetadataController(metadataService),
		ConsumerService:    consumerService,
		FrontendHandler:    frontendHandler,
		WebSocketHub:       wsHub,
		Logger:             sysLogger,

		openDota: openDotaClient,
		pubSub:   pubSub,
		natsPub:  natsPub,
		rdb:      rdb,
	}
}

// Close flushes the OpenDota cache and releases the infrastructure clients.
func (c *Container) Close(ctx context.Context) {
	if err := c.openDota.Flush(ctx); err != nil {
		c.Logger.Error("BOOTSTRAP", "Failed to flush OpenDota cache", map[string]interface{}{"error": err.Error()})
	}
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn("BOOTSTRAP", "Failed to close event bus", map[string]interface{}{"error": err.Error()})
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
