package controller

import "github.com/sharetube/watchsync/pkg/wsrouter"

const (
	videoPlayMessageType          = "video_play"
	videoPauseMessageType         = "video_pause"
	videoSeekMessageType          = "video_seek"
	videoChangeMessageType        = "video_change"
	playbackRateChangeMessageType = "playback_rate_change"
	syncRequestMessageType        = "sync_request"
	roomJoinMessageType           = "room_join"
	roomLeaveMessageType          = "room_leave"
	aliveMessageType              = "alive"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	r := wsrouter.New()
	r.Use(
		c.wsRequestIdWSMw(),
		c.loggerWSMw(r),
		c.errorWSMw(),
		c.authWSMw(),
	)

	wsrouter.Handle(r, videoPlayMessageType, c.handleVideoPlay)
	wsrouter.Handle(r, videoPauseMessageType, c.handleVideoPause)
	wsrouter.Handle(r, videoSeekMessageType, c.handleVideoSeek)
	wsrouter.Handle(r, videoChangeMessageType, c.handleVideoChange)
	wsrouter.Handle(r, playbackRateChangeMessageType, c.handlePlaybackRateChange)
	wsrouter.Handle(r, syncRequestMessageType, c.handleSyncRequest)
	wsrouter.Handle(r, roomJoinMessageType, c.handleRoomJoin)
	wsrouter.Handle(r, roomLeaveMessageType, c.handleRoomLeave)
	wsrouter.Handle(r, aliveMessageType, c.handleAlive)

	return r
}
