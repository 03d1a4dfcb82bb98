package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/01Freebird10/Smart-trip/internal/auth"
	"github.com/01Freebird10/Smart-trip/internal/chat"
	"github.com/01Freebird10/Smart-trip/internal/config"
	"github.com/01Freebird10/Smart-trip/internal/db"
	"github.com/01Freebird10/Smart-trip/internal/trip"
	"github.com/01Freebird10/Smart-trip/internal/user"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// 1. Config
	cfg := config.Load()
	if cfg.DBDSN == "" {
		log.Fatal().Msg("❌ DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("❌ JWT_SECRET is not set")
	}

	// 2. Platform layer: Postgres
	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to connect to DB")
	}
	log.Info().Msg("✅ Connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Migration failed")
	}

	// 3. Chat core: broker + store + publisher
	broker := chat.NewBroker(log)
	store := chat.NewPostgresStore(database.Conn)

	var pub chat.Publisher = chat.NewLocalPublisher(broker)
	var bridge *chat.RedisBridge
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to connect to Redis")
		}
		log.Info().Msg("✅ Connected to Redis")
		bridge = chat.NewRedisBridge(rdb, broker, log)
		go bridge.Run()
		pub = bridge
	}

	// 4. Identity & trips
	gate := auth.NewJWTGate(cfg.JWTSecret)
	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, gate)
	userHandler := user.NewHandler(userService)

	tripRepo := trip.NewRepository(database.Conn)
	tripHandler := trip.NewHandler(tripRepo)

	chatHandler := chat.NewHandler(broker, store, gate, pub, cfg.HistoryLimit, cfg.SendBuffer, log)

	authMiddleware := auth.NewMiddleware(gate)

	// 5. Routes
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// Public
	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Handle("/metrics", promhttp.Handler())

	// Websocket: the upgrade itself is public; anonymous sockets observe only.
	r.Get("/ws/chat/{roomKey}", chatHandler.ServeWs)

	// Protected REST
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)
		r.Post("/api/trips", tripHandler.Create)
		r.Get("/api/trips", tripHandler.List)
		r.Get("/api/messages", chatHandler.History)
	})

	// 6. Serve with graceful shutdown
	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("🚀 Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	broker.Shutdown()
	if bridge != nil {
		bridge.Close()
	}
}

// requestLogger logs each completed request with its status and latency.
func requestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
