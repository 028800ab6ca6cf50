package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/boxoffice/boxoffice/internal/booking"
	"github.com/boxoffice/boxoffice/internal/config"
	"github.com/boxoffice/boxoffice/internal/docstore"
	"github.com/boxoffice/boxoffice/internal/handler"
	"github.com/boxoffice/boxoffice/internal/identity"
	"github.com/boxoffice/boxoffice/internal/mailer"
	"github.com/boxoffice/boxoffice/internal/middleware"
	"github.com/boxoffice/boxoffice/internal/queue"
	"github.com/boxoffice/boxoffice/internal/repository"
	"github.com/boxoffice/boxoffice/internal/router"
	"github.com/boxoffice/boxoffice/internal/scheduler"
	"github.com/boxoffice/boxoffice/internal/service"
	"github.com/boxoffice/boxoffice/internal/validate"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env: %v", err)
	}
	cfg := config.Load()

	if cfg.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer store.Close()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	var mail identity.Mailer
	if cfg.SMTP.Enabled() {
		mail = mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.ResetURL)
	} else {
		log.Printf("mailer: SMTP_HOST/SMTP_FROM not set; password reset disabled")
	}
	auth := identity.NewAuthenticator(identity.Config{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
		ResetTTL:   cfg.Auth.ResetTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, store, mail)

	movies := repository.NewMovieRepo(store)
	users := repository.NewUserRepo(store)
	bookings := repository.NewBookingRepo(store)

	agg := booking.NewAggregator(bookings, movies, users)
	agg.FanOut = cfg.FanOut
	if agg.AdminPolicy, err = booking.ParsePolicy(cfg.AdminJoinPolicy); err != nil {
		log.Fatalf("config: %v", err)
	}
	creator := &booking.Creator{Movies: movies, Bookings: bookings}

	if cfg.AMQP.URL != "" {
		creator.Events = service.NewQueuePublisher(cfg.AMQP.URL)
		if cfg.AMQP.ConsumeLogs {
			consumer := queue.NewConsumer(cfg.AMQP.URL, cfg.AMQP.LogPath)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Printf("booking-consumer: stopped: %v", err)
				}
			}()
		}
	} else {
		log.Printf("rabbitmq: RABBITMQ_URL not set; booking events disabled")
	}

	sweeper := scheduler.NewSweeper(
		scheduler.Target{Name: "refresh tokens", Purger: repository.NewTokenRepo(store)},
		scheduler.Target{Name: "password resets", Purger: repository.NewResetRepo(store)},
	)
	sched, err := scheduler.Start(cfg.SweepInterval, sweeper)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	cacheCfg := config.LoadCacheConfig()

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.RegisterRoutes(e, store)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, users, cfg.RequestTimeout), auth,
		middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
	router.RegisterPublic(e, handler.NewCatalogHandler(movies, cfg.RequestTimeout),
		middleware.ResponseCache(cacheCfg, rdb))
	router.RegisterCustomer(e, handler.NewBookingHandler(agg, creator, cfg.RequestTimeout), auth)
	router.RegisterAdmin(e, handler.NewAdminHandler(movies, users, agg, middleware.NewCachePurger(cacheCfg, rdb), cfg.RequestTimeout), auth, users)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.Store.Driver)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
