package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/UkralStul/barfinder-service/internal/access"
	"github.com/UkralStul/barfinder-service/internal/config"
	"github.com/UkralStul/barfinder-service/internal/discovery"
	"github.com/UkralStul/barfinder-service/internal/domain"
	"github.com/UkralStul/barfinder-service/internal/events"
	"github.com/UkralStul/barfinder-service/internal/httpapi"
	"github.com/UkralStul/barfinder-service/internal/logging"
	"github.com/UkralStul/barfinder-service/internal/metrics"
	"github.com/UkralStul/barfinder-service/internal/moderation"
	"github.com/UkralStul/barfinder-service/internal/placestore"
	"github.com/UkralStul/barfinder-service/internal/region"
	"github.com/UkralStul/barfinder-service/internal/storage"
	"github.com/UkralStul/barfinder-service/internal/storage/inmemory"
	"github.com/UkralStul/barfinder-service/internal/storage/postgres"
	"github.com/UkralStul/barfinder-service/internal/storage/redis"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	storageType := flag.String("storage", "", "Storage type (in-memory, postgres or redis); overrides STORAGE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		// Логгер еще не настроен
		bootLogger := logging.New(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *storageType != "" {
		cfg.Storage.Backend = *storageType
		if err := cfg.Validate(); err != nil {
			bootLogger := logging.New(logging.Config{})
			bootLogger.Fatal().Err(err).Msg("invalid storage flag")
		}
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	rec := metrics.New(prometheus.NewRegistry())

	logger.Info().Str("storage", cfg.Storage.Backend).Msg("starting server")
	docs, closeStore := openStore(cfg.Storage, logger)
	defer closeStore()

	regions, err := loadRegions(cfg.Discovery.RegionDataset)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Discovery.RegionDataset).Msg("failed to load region dataset")
	}

	places := placestore.New(docs)
	if cfg.Storage.Backend == config.StorageInMemory && cfg.Storage.SeedDemoData {
		// Заполним данными для тестов
		fillWithMockData(places, logger)
	}

	observer := events.NewCommentObserver()
	workflow := moderation.New(places, access.New(places),
		moderation.WithNotifier(observer),
		moderation.WithLogger(logger),
		moderation.WithMetrics(rec),
	)
	engine := discovery.NewEngine(places,
		discovery.WithRadiusKm(cfg.Discovery.RadiusKm),
		discovery.WithLogger(logger),
		discovery.WithMetrics(rec),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Regions:    regions,
		Discovery:  engine,
		Moderation: workflow,
		Places:     places,
		Observer:   observer,
		Metrics:    rec,
		Logger:     logger,
	})

	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Float64("radius_km", engine.RadiusKm()).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
}

// openStore подключает выбранный бэкенд документного хранилища.
func openStore(cfg config.StorageConfig, logger zerolog.Logger) (storage.DocumentStore, func()) {
	switch cfg.Backend {
	case config.StoragePostgres:
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		return store, func() {}
	case config.StorageRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Logger:   logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to connect to redis")
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to close redis client")
			}
		}
	default:
		return inmemory.New(), func() {}
	}
}

func loadRegions(path string) (*region.Index, error) {
	if path == "" {
		return region.Default()
	}
	return region.LoadFile(path)
}

func fillWithMockData(s *placestore.Store, logger zerolog.Logger) {
	ctx := context.Background()
	now := time.Now().UTC()

	// 1. Пользователи: модератор и обычный.
	for _, u := range []domain.User{
		{ID: "user-admin", Name: "Admin", Email: "admin@barfinder.local", Role: domain.RoleAdmin},
		{ID: "user-1", Name: "Lucía", Email: "lucia@barfinder.local", Role: domain.RoleUser},
	} {
		if err := s.SetUser(ctx, u); err != nil {
			logger.Fatal().Err(err).Str("user_id", u.ID).Msg("fillWithMockData: failed to create user")
		}
	}

	// 2. Опубликованные заведения в Мадриде и Барселоне.
	for _, p := range []domain.Place{
		{
			ID: "place-sol", Name: "Bar Sol", Address: "Puerta del Sol 1",
			Province: "Madrid", Municipality: "Madrid",
			Latitude: "40.4169", Longitude: "-3.7035", OpeningHours: "12:00-02:00",
		},
		{
			ID: "place-born", Name: "El Born Tapas", Address: "Passeig del Born 15",
			Province: "Barcelona", Municipality: "Barcelona",
			Latitude: "41.3851", Longitude: "2.1834",
		},
	} {
		if err := s.SetPlace(ctx, p); err != nil {
			logger.Fatal().Err(err).Str("place_id", p.ID).Msg("fillWithMockData: failed to create place")
		}
	}

	// 3. Заявка и комментарий в очереди модерации.
	if err := s.CreateRequest(ctx, domain.PlaceRequest{
		ID: "request-1", Name: "Taberna Triana", Address: "Calle Betis 20",
		Province: "Sevilla", Municipality: "Sevilla",
		Latitude: 37.3826, Longitude: -6.0025,
		Status: domain.StatusPending, SubmittedBy: "user-1", CreatedAt: now,
	}); err != nil {
		logger.Fatal().Err(err).Msg("fillWithMockData: failed to create request")
	}
	rating := 5
	if err := s.CreatePendingComment(ctx, domain.Comment{
		ID: "comment-1", Text: "Las mejores bravas del centro.", AuthorID: "user-1",
		PlaceID: "place-sol", Status: domain.StatusPending, CreatedAt: now, Rating: &rating,
	}); err != nil {
		logger.Fatal().Err(err).Msg("fillWithMockData: failed to create comment")
	}

	logger.Info().Msg("mock data filled successfully")
}
