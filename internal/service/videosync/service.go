package videosync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sharetube/watchsync/internal/broadcast"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

var (
	ErrNotAuthenticated         = errors.New("not authenticated")
	ErrNotAMember               = errors.New("not a member of the room")
	ErrInsufficientRole         = errors.New("insufficient role")
	ErrStateNotFound            = errors.New("video state not found")
	ErrValidation               = errors.New("validation error")
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")
)

const DefaultMaxCommitAttempts = 5

type iRoomRepo interface {
	// membership
	GetMemberRole(context.Context, *room.GetMemberRoleParams) (room.Role, error)
	// video state
	GetVideoState(ctx context.Context, roomId string) (room.VideoState, error)
	CreateVideoState(context.Context, *room.CreateVideoStateParams) (room.VideoState, bool, error)
	SwapVideoState(context.Context, *room.SwapVideoStateParams) (room.VideoState, error)
}

type iPublisher interface {
	Publish(ctx context.Context, roomId string, msg *broadcast.Message)
}

type iVideoResolver interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type iRecorder interface {
	CommitRetried()
}

type noopRecorder struct{}

func (noopRecorder) CommitRetried() {}

type Config struct {
	MaxCommitAttempts int
	// optional, fills missing title and thumbnail on video change
	VideoResolver iVideoResolver
	Recorder      iRecorder
	Now           func() time.Time
}

type service struct {
	roomRepo          iRoomRepo
	publisher         iPublisher
	resolver          iVideoResolver
	recorder          iRecorder
	maxCommitAttempts int
	now               func() time.Time
	logger            *slog.Logger
}

func NewService(roomRepo iRoomRepo, publisher iPublisher, cfg *Config, logger *slog.Logger) *service {
	s := service{
		roomRepo:          roomRepo,
		publisher:         publisher,
		resolver:          cfg.VideoResolver,
		recorder:          cfg.Recorder,
		maxCommitAttempts: cfg.MaxCommitAttempts,
		now:               cfg.Now,
		logger:            logger,
	}

	if s.maxCommitAttempts <= 0 {
		s.maxCommitAttempts = DefaultMaxCommitAttempts
	}

	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}

	if s.now == nil {
		s.now = time.Now
	}

	return &s
}
