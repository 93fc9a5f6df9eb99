package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) writeString(s string) error {
	encoded := appendModifiedUTF8(make([]byte, 0, len(s)), s)
	if len(encoded) > MaxStringLen {
		return fmt.Errorf("%w: %d bytes encoded, limit %d", ErrFieldTooLong, len(encoded), MaxStringLen)
	}
	_ = binary.Write(&e.buf, binary.BigEndian, uint16(len(encoded)))
	e.buf.Write(encoded)
	return nil
}

func (e *encoder) writeBool(b bool) {
	if b {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

func (e *encoder) writeInt32(n int32) {
	_ = binary.Write(&e.buf, binary.BigEndian, n)
}

func (e *encoder) header(t MessageType) error {
	return e.writeString(string(t))
}

// EncodePlayerUpdate frames a player's payload.
// Payloads above CompressThreshold, or too long for a string field once
// encoded, are gzipped; if the compressed form is still above
// MaxCompressedSize nothing is produced and ErrPayloadTooLarge is returned,
// leaving the caller to log and drop the update.
func (c *Codec) EncodePlayerUpdate(playerID string, payload []byte) ([]byte, error) {
	cfg := c.Config()

	var e encoder
	if err := e.header(TypePlayerData); err != nil {
		return nil, err
	}
	if err := e.writeString(playerID); err != nil {
		return nil, err
	}

	if len(payload) <= cfg.CompressThreshold {
		prefix := e.buf.Len()
		e.writeBool(false)
		err := e.writeString(string(payload))
		if err == nil {
			return e.buf.Bytes(), nil
		}
		if !errors.Is(err, ErrFieldTooLong) {
			return nil, err
		}
		e.buf.Truncate(prefix)
	}

	compressed, err := compress(payload)
	if err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if len(compressed) > cfg.MaxCompressedSize {
		return nil, fmt.Errorf("%w: %d bytes compressed to %d, limit %d",
			ErrPayloadTooLarge, len(payload), len(compressed), cfg.MaxCompressedSize)
	}

	e.writeBool(true)
	e.writeInt32(int32(len(compressed)))
	e.buf.Write(compressed)
	return e.buf.Bytes(), nil
}

// EncodePlayerRemove frames a withdrawal of a player from the sending backend
func (c *Codec) EncodePlayerRemove(playerID string) ([]byte, error) {
	var e encoder
	if err := e.header(TypePlayerRemove); err != nil {
		return nil, err
	}
	if err := e.writeString(playerID); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

// EncodeRefreshRequest frames the proxy's request for a full resend
func (c *Codec) EncodeRefreshRequest() []byte {
	var e encoder
	_ = e.header(TypeRefresh)
	return e.buf.Bytes()
}

// EncodeServerInfo frames a backend's self-reported status
func (c *Codec) EncodeServerInfo(info ServerInfo) ([]byte, error) {
	var e encoder
	if err := e.header(TypeServerInfo); err != nil {
		return nil, err
	}
	if err := e.writeString(info.Version); err != nil {
		return nil, err
	}
	e.writeInt32(int32(info.OnlinePlayers))
	return e.buf.Bytes(), nil
}
