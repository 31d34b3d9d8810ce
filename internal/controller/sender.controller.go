package controller

import (
	"context"
	"errors"

	"github.com/sharetube/watchsync/internal/broadcast"
	"github.com/sharetube/watchsync/internal/service/videosync"
	"github.com/sharetube/watchsync/pkg/wsrouter"
)

const ackMessageType = "ack"

type Output struct {
	Type    string `json:"type"`
	Id      string `json:"id,omitempty"`
	Payload any    `json:"payload"`
}

type okAck struct {
	Success bool `json:"success"`
}

type stateAck struct {
	Success    bool                  `json:"success"`
	VideoState *videosync.VideoState `json:"video_state"`
}

type errorAck struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func (c controller) writeAck(ctx context.Context, payload any) error {
	client := c.getClientFromCtx(ctx)
	if client == nil {
		return errors.New("no client in context")
	}

	err := client.WriteJSON(&Output{
		Type:    ackMessageType,
		Id:      wsrouter.GetMessageIdFromCtx(ctx),
		Payload: payload,
	})
	if errors.Is(err, broadcast.ErrClientClosed) {
		c.logger.DebugContext(ctx, "client gone, ack discarded")
		return nil
	}

	return err
}

func (c controller) ackOk(ctx context.Context) error {
	return c.writeAck(ctx, okAck{Success: true})
}

func (c controller) ackState(ctx context.Context, state *videosync.VideoState) error {
	return c.writeAck(ctx, stateAck{Success: true, VideoState: state})
}

func (c controller) ackError(ctx context.Context, body errorBody) error {
	return c.writeAck(ctx, errorAck{Success: false, Error: body})
}
