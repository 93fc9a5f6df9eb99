package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/wire"
)

// Publisher is the backend side of the channel: it frames player state and
// publishes it to the proxy under one server name
type Publisher struct {
	uplink Uplink
	codec  *wire.Codec
	server model.ServerName
	logger *slog.Logger
}

// NewPublisher creates a publisher for server
func NewPublisher(uplink Uplink, codec *wire.Codec, server model.ServerName, logger *slog.Logger) (*Publisher, error) {
	if err := ValidateServerName(server); err != nil {
		return nil, err
	}
	return &Publisher{
		uplink: uplink,
		codec:  codec,
		server: server,
		logger: logger.With(slog.String("component", "publisher"), slog.String("server", string(server))),
	}, nil
}

// PushPlayer publishes the payload for id. A payload that cannot fit the
// channel is logged and dropped; the error is still returned.
func (p *Publisher) PushPlayer(ctx context.Context, id model.PlayerID, payload []byte) error {
	data, err := p.codec.EncodePlayerUpdate(string(id), payload)
	if err != nil {
		if errors.Is(err, wire.ErrPayloadTooLarge) {
			p.logger.Error("player payload too large to send",
				slog.String("player_id", string(id)),
				slog.Int("size", len(payload)),
				slog.String("error", err.Error()),
			)
		}
		return err
	}
	return p.uplink.Publish(ctx, p.server, data)
}

// PushBatch publishes a payload that names its players itself, either a
// single object with a uuid field or an object with a players array
func (p *Publisher) PushBatch(ctx context.Context, payload []byte) error {
	return p.PushPlayer(ctx, "", payload)
}

// RemovePlayer publishes the withdrawal of id from this backend
func (p *Publisher) RemovePlayer(ctx context.Context, id model.PlayerID) error {
	data, err := p.codec.EncodePlayerRemove(string(id))
	if err != nil {
		return err
	}
	return p.uplink.Publish(ctx, p.server, data)
}

// PushServerInfo publishes this backend's status
func (p *Publisher) PushServerInfo(ctx context.Context, info wire.ServerInfo) error {
	data, err := p.codec.EncodeServerInfo(info)
	if err != nil {
		return err
	}
	return p.uplink.Publish(ctx, p.server, data)
}

// OnRefresh calls fn whenever the proxy asks this backend to resend
func (p *Publisher) OnRefresh(ctx context.Context, fn func(ctx context.Context)) (func(), error) {
	return p.uplink.SubscribeDownlink(ctx, p.server, func(ctx context.Context, _ model.ServerName, data []byte) {
		msg, err := p.codec.Decode(data)
		if err != nil {
			p.logger.Warn("malformed message from proxy", slog.String("error", err.Error()))
			return
		}
		if msg.Type == wire.TypeRefresh {
			fn(ctx)
		}
	})
}
