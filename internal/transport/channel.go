// Package transport carries wire envelopes between backend servers and the
// proxy, and feeds what arrives into the player data service.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// Errors
var (
	ErrInvalidServerName = errors.New("invalid server name")
	ErrChannelClosed     = errors.New("channel closed")
)

// Handler receives one envelope together with the backend it concerns
type Handler func(ctx context.Context, server model.ServerName, data []byte)

// Channel is the proxy's side of the link: it receives envelopes sent up by
// every backend and sends envelopes down to a single backend
type Channel interface {
	Subscribe(ctx context.Context, h Handler) (unsubscribe func(), err error)
	Send(ctx context.Context, server model.ServerName, data []byte) error
}

// Uplink is a backend's side of the link
type Uplink interface {
	Publish(ctx context.Context, server model.ServerName, data []byte) error
	SubscribeDownlink(ctx context.Context, server model.ServerName, h Handler) (unsubscribe func(), err error)
}

// ValidateServerName rejects names that cannot be used as a single subject token
func ValidateServerName(server model.ServerName) error {
	if server == "" || strings.ContainsAny(string(server), ".*> \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidServerName, server)
	}
	return nil
}
