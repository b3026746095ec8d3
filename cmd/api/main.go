package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"

	"roomreserve/internal/api"
	"roomreserve/internal/clock"
	"roomreserve/internal/config"
	"roomreserve/internal/database"
	"roomreserve/internal/domain"
	"roomreserve/internal/events"
	"roomreserve/internal/logging"
	"roomreserve/internal/metrics"
	"roomreserve/internal/models"
	"roomreserve/internal/repository"
	"roomreserve/internal/service"
	"roomreserve/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer (func() { _ = closer.Close() })()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return fmt.Errorf("booking timezone: %w", err)
	}
	clk := clock.NewSystem(loc)

	rooms, err := loadRooms(&logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, rooms, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	state := initState(cfg, redisClient, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	bus := events.NewEventBus(&logger)

	calendar := service.NewCalendarService(db, state, time.Duration(cfg.Booking.CalendarCacheTTL)*time.Second, &logger)
	calendar.Subscribe(bus)

	if err := startNotifications(ctx, cfg, bus, redisClient, &logger); err != nil {
		return err
	}

	deps := api.Deps{
		Bookings: service.NewBookingService(db, state, bus, clk, loc,
			time.Duration(cfg.Booking.DuplicateWindow)*time.Second, &logger),
		Rooms:    service.NewRoomService(db, &logger),
		Calendar: calendar,
		Admin:    service.NewAdminService(db, cfg.Admin.Password, clk, loc, &logger),
		Storage:  db,
		Clock:    clk,
		Location: loc,
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(db, cfg.Database.Path, cfg.Backup, clk, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	return startServers(ctx, cfg, deps, db, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "api-main")

	return cfg, logger, closer, nil
}

func loadRooms(logger *zerolog.Logger) ([]models.Room, error) {
	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}
	roomsData, err := os.ReadFile(roomsPath)
	if err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("read rooms")
		return nil, err
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(roomsData, &roomsConfig); err != nil {
		logger.Error().Err(err).Str("rooms_path", roomsPath).Msg("parse rooms")
		return nil, err
	}
	if err := config.ValidateRooms(roomsConfig.Rooms); err != nil {
		return nil, fmt.Errorf("rooms %s: %w", roomsPath, err)
	}

	return roomsConfig.Rooms, nil
}

// initDatabase opens storage and seeds rooms and the settings row.
func initDatabase(ctx context.Context, cfg *config.Config, rooms []models.Room, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.Database.Driver).Msg("init database")
		return nil, err
	}

	if err := db.SyncRooms(ctx, rooms); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed rooms: %w", err)
	}
	settings, err := db.EnsureSettings(ctx, cfg.Booking.Defaults)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	logger.Info().
		Int("rooms", len(rooms)).
		Str("business_start", settings.BusinessStartTime).
		Str("business_end", settings.BusinessEndTime).
		Msg("database ready")
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initState(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	memory := repository.NewMemoryStateRepository()
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisStateRepository(redisClient, cfg.Redis.Prefix)
	return repository.NewFailoverStateRepository(primary, memory, logger)
}

func startNotifications(
	ctx context.Context,
	cfg *config.Config,
	bus *events.EventBus,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) error {
	if !cfg.Telegram.Enabled() {
		logger.Info().Msg("telegram notifications disabled")
		return nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("telegram bot: %w", err)
	}
	botAPI.Debug = cfg.Telegram.Debug

	notifyLogger := logging.Component(logger, "notify")
	notifier := worker.NewNotifyWorker(botAPI, cfg.Telegram.AdminChatIDs, redisClient, cfg.Redis.Prefix,
		worker.DefaultRetryPolicy, &notifyLogger)
	notifier.Subscribe(bus)
	go notifier.Start(ctx)

	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(cfg.Telegram.AdminChatIDs)).Msg("telegram notifications enabled")
	return nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	cfg *config.Config,
	deps api.Deps,
	db *database.DB,
	logger *zerolog.Logger,
) error {
	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		srv, err := api.NewGRPCServer(&cfg.API, db, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
		grpcServer = srv
		go grpcServer.WatchStorage(ctx, 15*time.Second)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	httpServer := api.NewHTTPServer(cfg.API, deps, logger)
	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	logger.Info().
		Bool("grpc", cfg.API.GRPC.Enabled).
		Int("grpc_port", cfg.API.GRPC.Port).
		Bool("http", cfg.API.HTTP.Enabled).
		Int("http_port", cfg.API.HTTP.Port).
		Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
