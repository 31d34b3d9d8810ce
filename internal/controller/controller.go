package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/validator"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

type iVideoSyncService interface {
	Play(context.Context, *videosync.PlayParams) (videosync.VideoState, error)
	Pause(context.Context, *videosync.PauseParams) (videosync.VideoState, error)
	Seek(context.Context, *videosync.SeekParams) (videosync.VideoState, error)
	ChangeVideo(context.Context, *videosync.ChangeVideoParams) (videosync.VideoState, error)
	ChangeRate(context.Context, *videosync.ChangeRateParams) (videosync.VideoState, error)
	GetState(context.Context, *videosync.GetStateParams) (*videosync.VideoState, error)
	CreateState(context.Context, *videosync.CreateStateParams) (videosync.VideoState, error)
}

type iHub interface {
	Subscribe(ctx context.Context, roomId string, sub connection.Subscriber) error
	Unsubscribe(ctx context.Context, roomId, subscriberId string) error
	UnsubscribeAll(ctx context.Context, subscriberId string) []string
}

type iMetrics interface {
	ObserveCommand(action, outcome string, took time.Duration)
	ConnectionOpened()
	ConnectionClosed()
	Handler() http.Handler
}

type Config struct {
	Secret     string
	SendBuffer int
}

type controller struct {
	videoSyncService iVideoSyncService
	hub              iHub
	metrics          iMetrics
	upgrader         websocket.Upgrader
	validate         *validator.Validator
	wsRouter         *wsrouter.WSRouter
	secret           []byte
	sendBuffer       int
	logger           *slog.Logger
}

func NewController(videoSyncService iVideoSyncService, hub iHub, metrics iMetrics, cfg *Config, logger *slog.Logger) *controller {
	c := controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		videoSyncService: videoSyncService,
		hub:              hub,
		metrics:          metrics,
		validate:         validator.NewValidator(),
		secret:           []byte(cfg.Secret),
		sendBuffer:       cfg.SendBuffer,
		logger:           logger,
	}
	c.wsRouter = c.getWSRouter()

	return &c
}
