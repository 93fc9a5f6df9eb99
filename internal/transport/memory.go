package transport

import (
	"context"
	"sync"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// MemoryChannel links backends and the proxy inside one process.
// Delivery is synchronous: Publish returns after the proxy handler ran.
type MemoryChannel struct {
	mu        sync.RWMutex
	nextID    int
	upstream  map[int]Handler
	downlinks map[model.ServerName]map[int]Handler
	closed    bool
}

// NewMemoryChannel creates an empty in-process channel
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{
		upstream:  make(map[int]Handler),
		downlinks: make(map[model.ServerName]map[int]Handler),
	}
}

var (
	_ Channel = (*MemoryChannel)(nil)
	_ Uplink  = (*MemoryChannel)(nil)
)

// Subscribe registers a proxy-side handler for every upstream envelope
func (c *MemoryChannel) Subscribe(ctx context.Context, h Handler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}
	id := c.nextID
	c.nextID++
	c.upstream[id] = h
	return func() {
		c.mu.Lock()
		delete(c.upstream, id)
		c.mu.Unlock()
	}, nil
}

// Send delivers data to every downlink subscriber of server
func (c *MemoryChannel) Send(ctx context.Context, server model.ServerName, data []byte) error {
	if err := ValidateServerName(server); err != nil {
		return err
	}
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrChannelClosed
	}
	handlers := make([]Handler, 0, len(c.downlinks[server]))
	for _, h := range c.downlinks[server] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, server, data)
	}
	return nil
}

// Publish delivers data from server to every proxy-side subscriber
func (c *MemoryChannel) Publish(ctx context.Context, server model.ServerName, data []byte) error {
	if err := ValidateServerName(server); err != nil {
		return err
	}
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrChannelClosed
	}
	handlers := make([]Handler, 0, len(c.upstream))
	for _, h := range c.upstream {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, server, data)
	}
	return nil
}

// SubscribeDownlink registers a backend-side handler for envelopes sent to server
func (c *MemoryChannel) SubscribeDownlink(ctx context.Context, server model.ServerName, h Handler) (func(), error) {
	if err := ValidateServerName(server); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrChannelClosed
	}
	id := c.nextID
	c.nextID++
	if c.downlinks[server] == nil {
		c.downlinks[server] = make(map[int]Handler)
	}
	c.downlinks[server][id] = h
	return func() {
		c.mu.Lock()
		delete(c.downlinks[server], id)
		c.mu.Unlock()
	}, nil
}

// Flush reports whether the channel is still open. Delivery is synchronous,
// so nothing is ever pending.
func (c *MemoryChannel) Flush(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}
	return nil
}

// Close drops every subscriber and refuses further traffic
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.upstream = make(map[int]Handler)
	c.downlinks = make(map[model.ServerName]map[int]Handler)
	c.mu.Unlock()
	return nil
}
