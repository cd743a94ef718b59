package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/BlockFox/app/controllers"
	"github.com/ManuelReschke/BlockFox/app/repository"
	"github.com/ManuelReschke/BlockFox/internal/pkg/assets"
	"github.com/ManuelReschke/BlockFox/internal/pkg/billing"
	"github.com/ManuelReschke/BlockFox/internal/pkg/cache"
	"github.com/ManuelReschke/BlockFox/internal/pkg/config"
	"github.com/ManuelReschke/BlockFox/internal/pkg/database"
	"github.com/ManuelReschke/BlockFox/internal/pkg/env"
	"github.com/ManuelReschke/BlockFox/internal/pkg/events"
	"github.com/ManuelReschke/BlockFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/BlockFox/internal/pkg/lifecycle"
	"github.com/ManuelReschke/BlockFox/internal/pkg/plans"
	"github.com/ManuelReschke/BlockFox/internal/pkg/router"
	"github.com/ManuelReschke/BlockFox/internal/pkg/rpc"
	"github.com/ManuelReschke/BlockFox/internal/pkg/rpchealth"
	"github.com/ManuelReschke/BlockFox/internal/pkg/subscription"
	"github.com/ManuelReschke/BlockFox/internal/pkg/supervisor"
	"github.com/ManuelReschke/BlockFox/internal/pkg/syncstatus"
)

func main() {
	app, background := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	background.Stop()
	if err != nil {
		log.Fatal(err)
	}
}

// Background holds the workers started next to the HTTP server.
type Background struct {
	jobs      *jobqueue.Manager
	health    *rpchealth.Monitor
	publisher events.Publisher
}

func (b *Background) Stop() {
	b.health.Stop()
	b.jobs.Stop()
	if err := b.publisher.Close(); err != nil {
		log.Printf("Closing event publisher failed: %v", err)
	}
}

func NewApplication() (*fiber.App, *Background) {
	env.SetupEnvFile()
	cfg := config.Load()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/blockfox to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	// SERVICES
	validate := validator.New()
	prober := rpc.NewEthProber()
	processes := supervisor.NewClientFromEnv()
	publisher := events.NewPublisherFromEnv()
	stripeProvider := billing.NewStripeProviderFromEnv()
	catalog := plans.NewCatalog(repos.Plan)

	jobs := jobqueue.GetManager()
	queue := jobs.GetQueue()

	coordinator := subscription.NewCoordinator(repos, catalog, stripeProvider, queue, publisher, cfg)
	explorers := lifecycle.NewService(lifecycle.Deps{
		Repos:     repos,
		Plans:     catalog,
		Subs:      coordinator,
		Prober:    prober,
		Sync:      queue,
		Status:    syncstatus.NewResolver(processes),
		Events:    publisher,
		Usage:     lifecycle.RedisUsageCounter{},
		Config:    cfg,
		Validator: validate,
	})

	health := rpchealth.NewMonitor(repos, prober, queue, rpchealth.Options{
		Interval:        cfg.RPCHealthInterval,
		ProbeTimeout:    cfg.RPCProbeTimeout,
		Concurrency:     env.GetEnvInt("RPC_HEALTH_CONCURRENCY", 8),
		ProbesPerSecond: float64(env.GetEnvInt("RPC_HEALTH_PROBES_PER_SECOND", 20)),
	})

	jobs.Configure(jobqueue.Dependencies{
		Repos:      repos,
		Supervisor: processes,
		Health:     health,
		Usage:      lifecycle.RedisUsageCounter{},
	})
	jobs.Start()
	health.Start()

	api := &controllers.API{
		Explorers:     explorers,
		Subscriptions: coordinator,
		Plans:         catalog,
		Queue:         queue,
		Webhooks:      billing.NewJournalFromDB(db),
		Billing:       stripeProvider,
		Validator:     validate,
	}
	if uploader := newAssetUploader(); uploader != nil {
		api.Assets = uploader
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: int(assets.MaxUploadBytes) + 1<<20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber monitor
	app.Get("/admin/monitor", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("MONITOR_USER", "admin"): env.GetEnv("MONITOR_PASSWORD", "test"),
		},
	}), monitor.New())

	// prometheus
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.NewApiRouter(api, repos.User, cfg.InternalAPISecret, router.NewLimiterStorage()))

	return app, &Background{jobs: jobs, health: health, publisher: publisher}
}

// newAssetUploader returns nil when S3 is disabled or unreachable, which
// turns the branding upload endpoint off.
func newAssetUploader() *assets.Uploader {
	cfg, err := assets.LoadConfig()
	if err != nil {
		log.Printf("Asset storage disabled: %v", err)
		return nil
	}
	if !cfg.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := assets.NewClient(ctx, cfg)
	if err != nil {
		log.Printf("Asset storage disabled: %v", err)
		return nil
	}
	return assets.NewUploader(client, cfg)
}
