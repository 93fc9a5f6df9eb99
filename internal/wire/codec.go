// Package wire frames player updates into the binary envelopes exchanged
// between backend servers and the proxy, and parses them back.
//
// Every envelope starts with a length-prefixed message-type tag:
//
//	PlayerData   := "PlayerData" playerID:string compressed:bool
//	                [compressed] length:int32-BE gzip:bytes
//	                [!compressed] payload:string
//	PlayerRemove := "PlayerRemove" playerID:string
//	Refresh      := "Refresh"
//	ServerInfo   := "ServerInfo" version:string onlinePlayers:int32-BE
//
// Strings are an unsigned 16-bit big-endian byte length followed by
// modified UTF-8, as written by DataOutputStream.writeUTF. An envelope must
// end exactly where its last field does.
package wire

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// MessageType is the tag at the head of every envelope
type MessageType string

const (
	TypePlayerData   MessageType = "PlayerData"
	TypePlayerRemove MessageType = "PlayerRemove"
	TypeRefresh      MessageType = "Refresh"
	TypeServerInfo   MessageType = "ServerInfo"
)

// MaxStringLen is the largest string a length-prefixed field can carry
const MaxStringLen = 1<<16 - 1

// Errors
var (
	// ErrMalformedMessage means the envelope cannot be parsed and must be dropped
	ErrMalformedMessage = errors.New("malformed message")
	// ErrPayloadTooLarge means the payload exceeds the channel ceiling even after compression
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrFieldTooLong means an id or version string does not fit a length-prefixed field
	ErrFieldTooLong = errors.New("string field too long")
	// ErrInvalidConfig is returned by Config.Validate
	ErrInvalidConfig = errors.New("invalid wire config")
)

// Config holds the size limits of the channel
type Config struct {
	// CompressThreshold is the raw payload size above which payloads are gzipped
	CompressThreshold int `yaml:"compress_threshold" env:"COMPRESS_THRESHOLD"`
	// MaxCompressedSize is the hard ceiling for a compressed payload
	MaxCompressedSize int `yaml:"max_compressed_size" env:"MAX_COMPRESSED_SIZE"`
	// MaxDecompressedSize bounds how much a received compressed payload may inflate to
	MaxDecompressedSize int `yaml:"max_decompressed_size" env:"MAX_DECOMPRESSED_SIZE"`
}

// DefaultConfig returns limits that fit a ~32 KiB plugin-message channel
func DefaultConfig() Config {
	return Config{
		CompressThreshold:   30000,
		MaxCompressedSize:   32000,
		MaxDecompressedSize: 16 << 20,
	}
}

// Validate checks the limits are usable together
func (c Config) Validate() error {
	switch {
	case c.CompressThreshold <= 0 || c.MaxCompressedSize <= 0 || c.MaxDecompressedSize <= 0:
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	case c.CompressThreshold >= c.MaxCompressedSize:
		return fmt.Errorf("%w: compress threshold %d must be below max compressed size %d",
			ErrInvalidConfig, c.CompressThreshold, c.MaxCompressedSize)
	case c.CompressThreshold > MaxStringLen:
		return fmt.Errorf("%w: compress threshold %d exceeds string field limit %d",
			ErrInvalidConfig, c.CompressThreshold, MaxStringLen)
	}
	return nil
}

// ServerInfo is the status body of a ServerInfo envelope
type ServerInfo struct {
	Version       string
	OnlinePlayers int
}

// Message is a decoded envelope
type Message struct {
	Type MessageType
	// PlayerID is set for PlayerData and PlayerRemove
	PlayerID string
	// Payload is the decompressed player payload for PlayerData
	Payload []byte
	// Compressed reports whether the payload travelled gzipped
	Compressed bool
	// ServerInfo is set for ServerInfo messages
	ServerInfo *ServerInfo
}

// Codec encodes and decodes envelopes. Its limits can be swapped while
// other goroutines encode and decode.
type Codec struct {
	cfg atomic.Pointer[Config]
}

// NewCodec creates a codec, rejecting inconsistent limits
func NewCodec(cfg Config) (*Codec, error) {
	c := &Codec{}
	if err := c.SetConfig(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Config returns the codec's limits
func (c *Codec) Config() Config {
	return *c.cfg.Load()
}

// SetConfig replaces the limits. Invalid limits are rejected and the
// current ones stay in force.
func (c *Codec) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg.Store(&cfg)
	return nil
}
