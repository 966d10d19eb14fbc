package main // Entry point package

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/field-reservation/internal/availability"
	"github.com/iliyamo/field-reservation/internal/cache"
	"github.com/iliyamo/field-reservation/internal/clock"
	"github.com/iliyamo/field-reservation/internal/config"
	"github.com/iliyamo/field-reservation/internal/database"
	"github.com/iliyamo/field-reservation/internal/handler"
	"github.com/iliyamo/field-reservation/internal/middleware"
	"github.com/iliyamo/field-reservation/internal/notifier"
	"github.com/iliyamo/field-reservation/internal/queue"
	"github.com/iliyamo/field-reservation/internal/repository"
	"github.com/iliyamo/field-reservation/internal/router"
	"github.com/iliyamo/field-reservation/internal/scheduler"
)

func main() {
	cfg := config.Load()
	cacheCfg := config.LoadCacheConfig()
	schedCfg := config.LoadSchedulerConfig()
	rateCfg := config.LoadRateLimitConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: a nil client disables caching, rate limiting
	// falls through open, and pub/sub notifications are skipped.
	rdb := config.NewRedisClient()

	reservations := repository.NewReservationRepo(db)
	fields := repository.NewFieldRepo(db)
	users := repository.NewUserRepo(db)

	clk := clock.NewSystem()
	guard := availability.NewGuard(reservations, fields, clk)

	cacheRdb := rdb
	if !cacheCfg.Enabled {
		cacheRdb = nil // a nil client turns the store into a pass-through
	}
	cacheStore := cache.NewStore(cacheRdb, cacheCfg.TTL)
	invalidator := cache.NewInvalidator(rdb, cacheCfg.Prefix)
	ntf := notifier.New(guard, rdb)

	if schedCfg.Enabled {
		lc := scheduler.NewLifecycle(reservations, clk, invalidator, ntf)
		runner := scheduler.NewRunner()
		lc.RegisterAll(runner, schedCfg.Interval)
		runner.Start(context.Background())
	}

	// Durable event drain: consumes availability.changed and appends an
	// audit line per event.  Runs until the process exits.
	go func() {
		if err := queue.StartAvailabilityConsumer(); err != nil {
			log.Printf("rabbitmq: consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(rateCfg, rdb))

	router.RegisterHealth(e)
	router.RegisterAuth(e, handler.NewAuthHandler(users, cfg), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewAvailabilityHandler(guard, fields, cacheStore, cacheCfg.Prefix))
	router.RegisterReservations(e,
		handler.NewReservationHandler(guard, reservations, fields, invalidator, ntf, clk, schedCfg.HoldTTL),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
