package videosync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchsync/internal/broadcast"
	"github.com/sharetube/watchsync/internal/repository/room"
	roomRedis "github.com/sharetube/watchsync/internal/repository/room/redis"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, msg *broadcast.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg.Payload.(Event))
}

func (p *capturePublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

type testRepo interface {
	iRoomRepo
	SetMember(context.Context, *room.SetMemberParams) error
}

type testEnv struct {
	service   *service
	repo      testRepo
	publisher *capturePublisher
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	if cfg == nil {
		cfg = &Config{}
	}

	repo := roomRedis.NewRepo(rc, slog.Default())
	publisher := &capturePublisher{}
	return &testEnv{
		service:   NewService(repo, publisher, cfg, slog.Default()),
		repo:      repo,
		publisher: publisher,
	}
}

func (e *testEnv) member(t *testing.T, roomId, userId string, role room.Role) {
	t.Helper()
	require.NoError(t, e.repo.SetMember(context.Background(), &room.SetMemberParams{
		UserId: userId,
		RoomId: roomId,
		Role:   role,
	}))
}

// controlCommands runs every control command with valid input.
var controlCommands = map[string]func(s *service, ctx context.Context, roomId, userId string) (VideoState, error){
	ActionPlay: func(s *service, ctx context.Context, roomId, userId string) (VideoState, error) {
		return s.Play(ctx, &PlayParams{RoomId: roomId, SenderId: userId, CurrentTime: 1})
	},
	ActionPause: func(s *service, ctx context.Context, roomId, userId string) (VideoState, error) {
		return s.Pause(ctx, &PauseParams{RoomId: roomId, SenderId: userId, CurrentTime: 1})
	},
	ActionSeek: func(s *service, ctx context.Context, roomId, userId string) (VideoState, error) {
		return s.Seek(ctx, &SeekParams{RoomId: roomId, SenderId: userId, CurrentTime: 1})
	},
	ActionChange: func(s *service, ctx context.Context, roomId, userId string) (VideoState, error) {
		return s.ChangeVideo(ctx, &ChangeVideoParams{RoomId: roomId, SenderId: userId, VideoId: "dQw4w9WgXcQ"})
	},
	ActionPlaybackRateChange: func(s *service, ctx context.Context, roomId, userId string) (VideoState, error) {
		return s.ChangeRate(ctx, &ChangeRateParams{RoomId: roomId, SenderId: userId, Rate: 1.5})
	},
}

func TestAuthorizationIsRoleExhaustive(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.member(t, "room1", "host", room.RoleHost)
	env.member(t, "room1", "moderator", room.RoleModerator)
	env.member(t, "room1", "member", room.RoleMember)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	for action, run := range controlCommands {
		t.Run(action, func(t *testing.T) {
			before, err := env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "member"})
			require.NoError(t, err)

			_, err = run(env.service, ctx, "room1", "member")
			require.ErrorIs(t, err, ErrInsufficientRole)

			after, err := env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "member"})
			require.NoError(t, err)
			assert.Equal(t, before, after, "rejected command must not change state")

			for _, userId := range []string{"host", "moderator"} {
				_, err := run(env.service, ctx, "room1", userId)
				require.NoError(t, err, userId)
			}
		})
	}
}

func TestNotAMember(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.member(t, "room1", "host", room.RoleHost)
	env.member(t, "room2", "stranger", room.RoleHost)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	for action, run := range controlCommands {
		_, err := run(env.service, ctx, "room1", "stranger")
		assert.ErrorIs(t, err, ErrNotAMember, action)
	}

	_, err = env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "stranger"})
	assert.ErrorIs(t, err, ErrNotAMember)

	_, err = env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "stranger"})
	assert.ErrorIs(t, err, ErrNotAMember)

	assert.Empty(t, env.publisher.Events())
}

type stubRepo struct {
	mu    sync.Mutex
	calls int

	getMemberRole func(*room.GetMemberRoleParams) (room.Role, error)
	getVideoState func(roomId string) (room.VideoState, error)
	swap          func(*room.SwapVideoStateParams) (room.VideoState, error)
	swaps         int
}

func (r *stubRepo) called() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
}

func (r *stubRepo) GetMemberRole(_ context.Context, params *room.GetMemberRoleParams) (room.Role, error) {
	r.called()
	if r.getMemberRole == nil {
		return room.RoleHost, nil
	}
	return r.getMemberRole(params)
}

func (r *stubRepo) GetVideoState(_ context.Context, roomId string) (room.VideoState, error) {
	r.called()
	return r.getVideoState(roomId)
}

func (r *stubRepo) CreateVideoState(context.Context, *room.CreateVideoStateParams) (room.VideoState, bool, error) {
	r.called()
	return room.VideoState{}, false, errors.New("not implemented")
}

func (r *stubRepo) SwapVideoState(_ context.Context, params *room.SwapVideoStateParams) (room.VideoState, error) {
	r.called()
	r.swaps++
	return r.swap(params)
}

func TestNotAuthenticatedTouchesNothing(t *testing.T) {
	repo := &stubRepo{}
	publisher := &capturePublisher{}
	s := NewService(repo, publisher, &Config{}, slog.Default())
	ctx := context.Background()

	for action, run := range controlCommands {
		_, err := run(s, ctx, "room1", "")
		assert.ErrorIs(t, err, ErrNotAuthenticated, action)
	}

	_, err := s.GetState(ctx, &GetStateParams{RoomId: "room1"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = s.CreateState(ctx, &CreateStateParams{RoomId: "room1"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	assert.Zero(t, repo.calls)
	assert.Empty(t, publisher.Events())
}

func TestStateNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)

	for action, run := range controlCommands {
		_, err := run(env.service, ctx, "room1", "host")
		assert.ErrorIs(t, err, ErrStateNotFound, action)
	}

	state, err := env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)
	assert.Nil(t, state, "sync on absent state returns null")
	assert.Empty(t, env.publisher.Events())
}

func TestValidationRejectsWithoutWriting(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	created, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	_, err = env.service.Play(ctx, &PlayParams{RoomId: "room1", SenderId: "host", CurrentTime: -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.service.ChangeRate(ctx, &ChangeRateParams{RoomId: "room1", SenderId: "host", Rate: 2.5})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "rate")

	_, err = env.service.ChangeRate(ctx, &ChangeRateParams{RoomId: "room1", SenderId: "host", Rate: 0.1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.service.ChangeVideo(ctx, &ChangeVideoParams{RoomId: "room1", SenderId: "host"})
	assert.ErrorIs(t, err, ErrValidation)

	state, err := env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)
	assert.Equal(t, created, *state)
	assert.Empty(t, env.publisher.Events())
}

func TestCreateStateIsIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	env.member(t, "room1", "member", room.RoleMember)

	const callers = 10
	states := make([]VideoState, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userId := "host"
			if i%2 == 0 {
				userId = "member"
			}
			state, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: userId})
			assert.NoError(t, err)
			states[i] = state
		}(i)
	}
	wg.Wait()

	for _, state := range states {
		assert.Equal(t, states[0], state)
	}
	assert.Equal(t, int64(1), states[0].Version)
	assert.Equal(t, 0.0, states[0].CurrentTime)
	assert.False(t, states[0].IsPlaying)
	assert.Equal(t, 1.0, states[0].PlaybackRate)
	assert.Nil(t, states[0].VideoId)

	// an existing state is returned unchanged
	_, err := env.service.Play(ctx, &PlayParams{RoomId: "room1", SenderId: "host", CurrentTime: 5})
	require.NoError(t, err)
	again, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.Version)
	assert.True(t, again.IsPlaying)
}

func TestScenarioR1(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.member(t, "R1", "host", room.RoleHost)
	env.member(t, "R1", "member", room.RoleMember)

	state, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "R1", SenderId: "host"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, state.CurrentTime)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 1.0, state.PlaybackRate)

	state, err = env.service.Play(ctx, &PlayParams{RoomId: "R1", SenderId: "host", CurrentTime: 42.5})
	require.NoError(t, err)
	assert.Equal(t, 42.5, state.CurrentTime)
	assert.True(t, state.IsPlaying)

	events := env.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ActionPlay, events[0].Action)
	assert.Equal(t, "host", events[0].UserId)
	assert.Equal(t, 42.5, events[0].VideoState.CurrentTime)
	assert.True(t, events[0].VideoState.IsPlaying)

	_, err = env.service.Pause(ctx, &PauseParams{RoomId: "R1", SenderId: "member", CurrentTime: 10})
	require.ErrorIs(t, err, ErrInsufficientRole)

	current, err := env.service.GetState(ctx, &GetStateParams{RoomId: "R1", SenderId: "member"})
	require.NoError(t, err)
	assert.Equal(t, 42.5, current.CurrentTime)
	assert.True(t, current.IsPlaying)
	assert.Len(t, env.publisher.Events(), 1)
}

func TestNoLostUpdates(t *testing.T) {
	env := newTestEnv(t, &Config{MaxCommitAttempts: 1000})
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	env.member(t, "room1", "moderator", room.RoleModerator)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = env.service.Play(ctx, &PlayParams{RoomId: "room1", SenderId: "host", CurrentTime: 10})
			} else {
				_, err = env.service.ChangeRate(ctx, &ChangeRateParams{RoomId: "room1", SenderId: "moderator", Rate: 2})
			}
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state, err := env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)
	assert.Equal(t, int64(1+writers), state.Version, "every accepted command bumps the version once")
	assert.True(t, state.IsPlaying)
	assert.Equal(t, 2.0, state.PlaybackRate)

	// each commit was based on the one before it
	versions := make(map[int64]bool)
	for _, event := range env.publisher.Events() {
		assert.False(t, versions[event.VideoState.Version], "version %d committed twice", event.VideoState.Version)
		versions[event.VideoState.Version] = true
	}
	assert.Len(t, versions, writers)
}

func TestCommitRetriesOnFreshState(t *testing.T) {
	base := room.VideoState{RoomId: "room1", PlaybackRate: 1, Version: 1}
	peer := base
	peer.PlaybackRate = 2
	peer.Version = 2

	reads := 0
	repo := &stubRepo{
		getVideoState: func(string) (room.VideoState, error) {
			reads++
			if reads == 1 {
				return base, nil
			}
			return peer, nil
		},
	}
	repo.swap = func(params *room.SwapVideoStateParams) (room.VideoState, error) {
		if params.ExpectedVersion != peer.Version {
			return room.VideoState{}, room.ErrVersionMismatch
		}
		state := params.State
		state.Version = params.ExpectedVersion + 1
		return state, nil
	}

	publisher := &capturePublisher{}
	s := NewService(repo, publisher, &Config{}, slog.Default())
	state, err := s.Play(context.Background(), &PlayParams{RoomId: "room1", SenderId: "host", CurrentTime: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.swaps)
	assert.Equal(t, int64(3), state.Version)
	assert.Equal(t, 2.0, state.PlaybackRate, "peer's change survives")
	assert.True(t, state.IsPlaying)
	assert.Len(t, publisher.Events(), 1)
}

type retryCounter struct {
	mu    sync.Mutex
	count int
}

func (c *retryCounter) CommitRetried() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func TestCommitAttemptsExhausted(t *testing.T) {
	repo := &stubRepo{
		getVideoState: func(string) (room.VideoState, error) {
			return room.VideoState{RoomId: "room1", PlaybackRate: 1, Version: 1}, nil
		},
		swap: func(*room.SwapVideoStateParams) (room.VideoState, error) {
			return room.VideoState{}, room.ErrVersionMismatch
		},
	}

	publisher := &capturePublisher{}
	retries := &retryCounter{}
	s := NewService(repo, publisher, &Config{MaxCommitAttempts: 3, Recorder: retries}, slog.Default())
	_, err := s.Seek(context.Background(), &SeekParams{RoomId: "room1", SenderId: "host", CurrentTime: 3})
	require.ErrorIs(t, err, ErrConcurrentUpdateConflict)

	assert.Equal(t, 3, repo.swaps)
	assert.Equal(t, 3, retries.count)
	assert.Empty(t, publisher.Events())
}

func TestStorageErrorIsNotRetried(t *testing.T) {
	storageErr := errors.New("connection refused")
	repo := &stubRepo{
		getVideoState: func(string) (room.VideoState, error) {
			return room.VideoState{RoomId: "room1", PlaybackRate: 1, Version: 1}, nil
		},
		swap: func(*room.SwapVideoStateParams) (room.VideoState, error) {
			return room.VideoState{}, storageErr
		},
	}

	s := NewService(repo, &capturePublisher{}, &Config{}, slog.Default())
	_, err := s.Pause(context.Background(), &PauseParams{RoomId: "room1", SenderId: "host", CurrentTime: 3})
	require.ErrorIs(t, err, storageErr)
	assert.Equal(t, 1, repo.swaps)
}

func TestLastUpdatedNeverGoesBackwards(t *testing.T) {
	clock := time.UnixMilli(1_700_000_000_000).UTC()
	env := newTestEnv(t, &Config{Now: func() time.Time { return clock }})
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)

	created, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	// another server with a slower clock
	clock = clock.Add(-time.Hour)
	state, err := env.service.Seek(ctx, &SeekParams{RoomId: "room1", SenderId: "host", CurrentTime: 5})
	require.NoError(t, err)
	assert.True(t, state.LastUpdated.Equal(created.LastUpdated))

	clock = clock.Add(2 * time.Hour)
	state, err = env.service.Seek(ctx, &SeekParams{RoomId: "room1", SenderId: "host", CurrentTime: 6})
	require.NoError(t, err)
	assert.True(t, state.LastUpdated.Equal(clock))
}

func TestCommandCompletesAfterCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	env.member(t, "room1", "host", room.RoleHost)
	_, err := env.service.CreateState(context.Background(), &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := env.service.Play(ctx, &PlayParams{RoomId: "room1", SenderId: "host", CurrentTime: 9})
	require.NoError(t, err)
	assert.True(t, state.IsPlaying)
	assert.Len(t, env.publisher.Events(), 1)
}

type stubResolver struct {
	data *ytvideodata.VideoData
	err  error
}

func (r stubResolver) Get(context.Context, string) (*ytvideodata.VideoData, error) {
	return r.data, r.err
}

func TestChangeVideoResolvesMetadata(t *testing.T) {
	resolver := stubResolver{data: &ytvideodata.VideoData{
		Title:        "Resolved title",
		ThumbnailUrl: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg",
	}}
	env := newTestEnv(t, &Config{VideoResolver: resolver})
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	_, err = env.service.Play(ctx, &PlayParams{RoomId: "room1", SenderId: "host", CurrentTime: 50})
	require.NoError(t, err)

	title := "Given title"
	state, err := env.service.ChangeVideo(ctx, &ChangeVideoParams{
		RoomId:     "room1",
		SenderId:   "host",
		VideoId:    "dQw4w9WgXcQ",
		VideoTitle: &title,
	})
	require.NoError(t, err)
	assert.Equal(t, "Given title", *state.VideoTitle)
	assert.Equal(t, resolver.data.ThumbnailUrl, *state.VideoThumbnail)
	assert.Equal(t, 0.0, state.CurrentTime)
	assert.False(t, state.IsPlaying)

	events := env.publisher.Events()
	require.Len(t, events, 2)
	assert.Equal(t, ActionChange, events[1].Action)
}

func TestChangeVideoIgnoresResolverFailure(t *testing.T) {
	env := newTestEnv(t, &Config{VideoResolver: stubResolver{err: ytvideodata.ErrVideoNotFound}})
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	state, err := env.service.ChangeVideo(ctx, &ChangeVideoParams{RoomId: "room1", SenderId: "host", VideoId: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", *state.VideoId)
	assert.Nil(t, state.VideoTitle)
	assert.Nil(t, state.VideoThumbnail)
}

func TestChangeVideoEmptyMetadataMatchesSync(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	empty := ""
	state, err := env.service.ChangeVideo(ctx, &ChangeVideoParams{
		RoomId:         "room1",
		SenderId:       "host",
		VideoId:        "abc",
		VideoTitle:     &empty,
		VideoThumbnail: &empty,
	})
	require.NoError(t, err)
	assert.Nil(t, state.VideoTitle)
	assert.Nil(t, state.VideoThumbnail)

	events := env.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, state, events[0].VideoState)

	synced, err := env.service.GetState(ctx, &GetStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)
	require.NotNil(t, synced)
	assert.Equal(t, state, *synced)
}

type countingResolver struct {
	mu    sync.Mutex
	calls int
}

func (r *countingResolver) Get(context.Context, string) (*ytvideodata.VideoData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return &ytvideodata.VideoData{Title: "t", ThumbnailUrl: "u"}, nil
}

func TestChangeVideoInvalidIdSkipsResolver(t *testing.T) {
	resolver := &countingResolver{}
	env := newTestEnv(t, &Config{VideoResolver: resolver})
	ctx := context.Background()
	env.member(t, "room1", "host", room.RoleHost)
	_, err := env.service.CreateState(ctx, &CreateStateParams{RoomId: "room1", SenderId: "host"})
	require.NoError(t, err)

	_, err = env.service.ChangeVideo(ctx, &ChangeVideoParams{RoomId: "room1", SenderId: "host", VideoId: ""})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, resolver.calls)
	assert.Empty(t, env.publisher.Events())
}
