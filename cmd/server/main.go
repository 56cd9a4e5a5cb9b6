package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/civicworks/facility-reservation/internal/booking"
	"github.com/civicworks/facility-reservation/internal/clock"
	"github.com/civicworks/facility-reservation/internal/config"
	"github.com/civicworks/facility-reservation/internal/database"
	"github.com/civicworks/facility-reservation/internal/handler"
	"github.com/civicworks/facility-reservation/internal/middleware"
	"github.com/civicworks/facility-reservation/internal/queue"
	"github.com/civicworks/facility-reservation/internal/repository"
	"github.com/civicworks/facility-reservation/internal/router"
	queue_publisher "github.com/civicworks/facility-reservation/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and availability cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	facilities := repository.NewFacilityRepo(db)
	notifications := repository.NewNotificationRepo(db)
	audits := repository.NewAuditRepo(db)
	store := repository.NewReservationStore(db)

	clk := clock.NewSystem()
	detector := booking.NewDetector(store)
	policy := booking.NewPolicy(store, clk, cfg.Policy)
	evaluator := booking.NewEvaluator(users)
	sink := queue_publisher.NewSink()
	svc := booking.NewService(store, detector, policy, evaluator, clk,
		booking.WithNotifier(sink),
		booking.WithAuditor(sink))

	// Decisions publish to RabbitMQ; these consumers persist the
	// notification and audit rows.
	queue.StartConsumers(notifications, audits)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewFacilityHandler(facilities, detector), config.LoadCacheConfig(), rdb)
	router.RegisterResident(e, handler.NewReservationHandler(svc, store, notifications), cfg.JWTSecret, rl)
	router.RegisterStaff(e, handler.NewStaffReservationHandler(svc, store), cfg.JWTSecret, rl)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
