package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchsync/internal/broadcast"
	"github.com/sharetube/watchsync/internal/controller"
	"github.com/sharetube/watchsync/internal/metrics"
	"github.com/sharetube/watchsync/internal/repository/connection/inmemory"
	"github.com/sharetube/watchsync/internal/repository/room"
	roomRedis "github.com/sharetube/watchsync/internal/repository/room/redis"
	roomSqlite "github.com/sharetube/watchsync/internal/repository/room/sqlite"
	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/redisclient"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

const (
	StoreDriverRedis  = "redis"
	StoreDriverSqlite = "sqlite"

	BroadcastDriverLocal = "local"
	BroadcastDriverRedis = "redis"

	videoMetadataTimeout = 5 * time.Second
)

type AppConfig struct {
	Secret               string `json:"-"`
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	LogLevel             string `json:"log_level"`
	StoreDriver          string `json:"store_driver"`
	SqlitePath           string `json:"sqlite_path"`
	BroadcastDriver      string `json:"broadcast_driver"`
	RedisHost            string `json:"redis_host"`
	RedisPort            int    `json:"redis_port"`
	RedisPassword        string `json:"-"`
	MaxCommitAttempts    int    `json:"max_commit_attempts"`
	SendBuffer           int    `json:"send_buffer"`
	PublishBuffer        int    `json:"publish_buffer"`
	ResolveVideoMetadata bool   `json:"resolve_video_metadata"`
}

func (cfg *AppConfig) usesRedis() bool {
	return cfg.StoreDriver == StoreDriverRedis || cfg.BroadcastDriver == BroadcastDriverRedis
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required),
		validation.Field(&cfg.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.StoreDriver, validation.Required, validation.In(StoreDriverRedis, StoreDriverSqlite)),
		validation.Field(&cfg.SqlitePath, validation.When(cfg.StoreDriver == StoreDriverSqlite, validation.Required)),
		validation.Field(&cfg.BroadcastDriver, validation.Required, validation.In(BroadcastDriverLocal, BroadcastDriverRedis)),
		validation.Field(&cfg.RedisHost, validation.When(cfg.usesRedis(), validation.Required)),
		validation.Field(&cfg.RedisPort, validation.When(cfg.usesRedis(), validation.Required, validation.Min(1), validation.Max(65535))),
		validation.Field(&cfg.MaxCommitAttempts, validation.Min(1)),
		validation.Field(&cfg.SendBuffer, validation.Required, validation.Min(1)),
		validation.Field(&cfg.PublishBuffer, validation.Required, validation.Min(1)),
	)
}

type roomStore interface {
	GetMemberRole(context.Context, *room.GetMemberRoleParams) (room.Role, error)
	GetVideoState(ctx context.Context, roomId string) (room.VideoState, error)
	CreateVideoState(context.Context, *room.CreateVideoStateParams) (room.VideoState, bool, error)
	SwapVideoState(context.Context, *room.SwapVideoStateParams) (room.VideoState, error)
}

type publisher interface {
	Publish(ctx context.Context, roomId string, msg *broadcast.Message)
}

// App holds the wired components of one server instance.
type App struct {
	Handler http.Handler

	hub     *broadcast.Hub
	relay   *broadcast.RedisPublisher
	closers []func() error
	logger  *slog.Logger
}

// New wires the store, broadcast and service layers. rc may be nil when no
// configured driver needs redis.
func New(cfg *AppConfig, rc *redis.Client, logger *slog.Logger) (*App, error) {
	a := App{logger: logger}

	var store roomStore
	switch cfg.StoreDriver {
	case StoreDriverRedis:
		store = roomRedis.NewRepo(rc, logger)
	case StoreDriverSqlite:
		repo, err := roomSqlite.Open(cfg.SqlitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, repo.Close)
		store = repo
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	m := metrics.New()
	subscriptionRepo := inmemory.NewRepo(logger)
	a.hub = broadcast.NewHub(subscriptionRepo, cfg.PublishBuffer, m, logger)

	var pub publisher = a.hub
	if cfg.BroadcastDriver == BroadcastDriverRedis {
		a.relay = broadcast.NewRedisPublisher(rc, a.hub, cfg.PublishBuffer, m, logger)
		pub = a.relay
	}

	serviceConfig := videosync.Config{
		MaxCommitAttempts: cfg.MaxCommitAttempts,
		Recorder:          m,
	}
	if cfg.ResolveVideoMetadata {
		serviceConfig.VideoResolver = ytvideodata.New(videoMetadataTimeout)
	}

	videoSyncService := videosync.NewService(store, pub, &serviceConfig, logger)
	c := controller.NewController(videoSyncService, a.hub, m, &controller.Config{
		Secret:     cfg.Secret,
		SendBuffer: cfg.SendBuffer,
	}, logger)
	a.Handler = c.GetMux()

	return &a, nil
}

// Start launches the broadcast loops and returns once the redis relay, if
// any, is subscribed.
func (a *App) Start(ctx context.Context) error {
	go a.hub.Run(ctx)

	if a.relay == nil {
		return nil
	}

	go a.relay.Run(ctx)

	ready := make(chan struct{})
	relayErr := make(chan error, 1)
	go func() {
		err := a.relay.Relay(ctx, ready)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.ErrorContext(ctx, "broadcast relay stopped", "error", err)
		}
		relayErr <- err
	}()

	select {
	case <-ready:
		return nil
	case err := <-relayErr:
		return fmt.Errorf("failed to start broadcast relay: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		errs = append(errs, closeFn())
	}

	return errors.Join(errs...)
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	var rc *redis.Client
	if cfg.usesRedis() {
		var err error
		rc, err = redisclient.NewRedisClient(ctx, &redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()
	}

	a, err := New(cfg, rc, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	if err := a.Start(serverCtx); err != nil {
		return err
	}

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: a.Handler}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "store", cfg.StoreDriver, "broadcast", cfg.BroadcastDriver)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
