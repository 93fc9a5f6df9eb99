package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// NATSConfig holds the NATS connection settings
type NATSConfig struct {
	URL string `yaml:"url" env:"URL"`
	// Channel is the subject root; envelopes travel on <Channel>.up.<server>
	// and <Channel>.down.<server>
	Channel       string        `yaml:"channel" env:"CHANNEL"`
	Name          string        `yaml:"name" env:"NAME"`
	MaxReconnects int           `yaml:"max_reconnects" env:"MAX_RECONNECTS"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"RECONNECT_WAIT"`
}

// DefaultNATSConfig returns settings for a local NATS server
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Channel:       "playerinfo",
		Name:          "playerinfo-proxy",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATSChannel carries envelopes over NATS core pub/sub
type NATSChannel struct {
	conn    *nats.Conn
	channel string
	logger  *slog.Logger
}

var (
	_ Channel = (*NATSChannel)(nil)
	_ Uplink  = (*NATSChannel)(nil)
)

// NewNATSChannel connects to NATS
func NewNATSChannel(cfg NATSConfig, logger *slog.Logger) (*NATSChannel, error) {
	logger = logger.With(slog.String("component", "nats"))

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("nats connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("nats async error", slog.String("error", err.Error()))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("nats connected",
		slog.String("url", conn.ConnectedUrl()),
		slog.String("channel", cfg.Channel),
	)
	return &NATSChannel{conn: conn, channel: cfg.Channel, logger: logger}, nil
}

func upSubject(channel string, server model.ServerName) string {
	return channel + ".up." + string(server)
}

func downSubject(channel string, server model.ServerName) string {
	return channel + ".down." + string(server)
}

// serverFromSubject extracts the backend name from <channel>.<dir>.<server>
func serverFromSubject(channel, dir, subject string) (model.ServerName, bool) {
	prefix := channel + "." + dir + "."
	if !strings.HasPrefix(subject, prefix) {
		return "", false
	}
	server := model.ServerName(strings.TrimPrefix(subject, prefix))
	if ValidateServerName(server) != nil {
		return "", false
	}
	return server, true
}

func (c *NATSChannel) subscribe(ctx context.Context, subject, dir string, h Handler) (func(), error) {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		server, ok := serverFromSubject(c.channel, dir, msg.Subject)
		if !ok {
			c.logger.Warn("message on unexpected subject", slog.String("subject", msg.Subject))
			return
		}
		h(ctx, server, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("unsubscribe failed",
				slog.String("subject", subject),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}

// Subscribe receives every envelope published by any backend
func (c *NATSChannel) Subscribe(ctx context.Context, h Handler) (func(), error) {
	return c.subscribe(ctx, c.channel+".up.*", "up", h)
}

// Send publishes data to the downlink of server
func (c *NATSChannel) Send(ctx context.Context, server model.ServerName, data []byte) error {
	if err := ValidateServerName(server); err != nil {
		return err
	}
	return c.conn.Publish(downSubject(c.channel, server), data)
}

// Publish sends data up to the proxy as server
func (c *NATSChannel) Publish(ctx context.Context, server model.ServerName, data []byte) error {
	if err := ValidateServerName(server); err != nil {
		return err
	}
	return c.conn.Publish(upSubject(c.channel, server), data)
}

// SubscribeDownlink receives envelopes the proxy sends to server
func (c *NATSChannel) SubscribeDownlink(ctx context.Context, server model.ServerName, h Handler) (func(), error) {
	if err := ValidateServerName(server); err != nil {
		return nil, err
	}
	return c.subscribe(ctx, downSubject(c.channel, server), "down", h)
}

// Flush waits until buffered publishes reached the server
func (c *NATSChannel) Flush(ctx context.Context) error {
	return c.conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection
func (c *NATSChannel) Close() error {
	return c.conn.Drain()
}
