package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MrPsycho237/digimarketstore/config"
	orderControllers "github.com/MrPsycho237/digimarketstore/controllers/order"
	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/routes"
	"github.com/MrPsycho237/digimarketstore/store"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	log.Println("✅ Starting application...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Init DB
	db := initDatabase(cfg)
	if err := gateway.Migrate(db); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}

	// Catalog cache is optional
	gwOpts := []gateway.Option{gateway.WithLogger(logger)}
	var cache *gateway.CatalogCache
	if cfg.RedisAddr != "" {
		cache = gateway.NewCatalogCache(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), "digimarket:catalog:", cfg.CacheTTL)

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Printf("⚠️ Redis unreachable at %s, catalog cache disabled: %v", cfg.RedisAddr, err)
			_ = cache.Close()
			cache = nil
		} else {
			gwOpts = append(gwOpts, gateway.WithCache(cache))
			log.Printf("✅ Catalog cache connected (%s)", cfg.RedisAddr)
		}
		cancel()
	}
	gw := gateway.New(db, gwOpts...)

	tokens := gateway.NewTokenManager(gateway.TokenConfig{
		SecretKey: cfg.JWTSecret,
		TTL:       cfg.SessionTTL,
		Issuer:    "digimarketstore",
	})
	authSvc := gateway.NewAuthService(db, gateway.NewPasswordHasher(cfg.BcryptCost), tokens, logger)

	feed := orderControllers.NewFeed()
	reg := store.NewRegistry(gw, func() gateway.Auth { return authSvc.NewClient() }, logger,
		store.WithLogger(logger),
		store.WithOrderObserver(feed.OrderPlaced),
	)

	// Gin setup
	r := gin.Default()

	// Product sheets are small; keep uploads bounded
	r.MaxMultipartMemory = 32 << 20

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, routes.Deps{Registry: reg, Feed: feed, APIKey: cfg.APIKey})

	bgCtx, stopBackground := context.WithCancel(context.Background())

	// Reconcile purchases daily, drop expired sessions periodically
	go reg.Reconciler().StartDaily(bgCtx, cfg.ReconcileHour, cfg.ReconcileMinute)
	go reg.StartPruning(bgCtx, cfg.PruneInterval)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("🚀 Server running on port %s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Println("🛑 Shutting down HTTP server...")
			stopBackground()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			if err := feed.Close(); err != nil {
				log.Printf("❌ Failed to close order feed: %v", err)
			}
			if err := reg.Close(); err != nil {
				log.Printf("❌ Failed to close sessions: %v", err)
			}
			if cache != nil {
				if err := cache.Close(); err != nil {
					log.Printf("❌ Failed to close redis: %v", err)
				}
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	exitCode := <-wait
	log.Printf("👋 Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// initDatabase sets up the GORM DB connection
func initDatabase(cfg *config.Config) *gorm.DB {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DatabaseURL)
	default:
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ DB connection failed: %v", err)
	}
	log.Printf("✅ Connected to %s database", cfg.DBDriver)
	return db
}
