package wire

import (
	"encoding/binary"
	"fmt"
)

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.off < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrMalformedMessage, n, d.off, len(d.data)-d.off)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) readString() (string, error) {
	lenBytes, err := d.take(2)
	if err != nil {
		return "", err
	}
	b, err := d.take(int(binary.BigEndian.Uint16(lenBytes)))
	if err != nil {
		return "", err
	}
	return decodeModifiedUTF8(b)
}

func (d *decoder) readBool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte 0x%02x", ErrMalformedMessage, b[0])
	}
}

func (d *decoder) readInt32() (int32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Decode parses an envelope. Every failure wraps ErrMalformedMessage;
// callers drop the message and carry on.
func (c *Codec) Decode(envelope []byte) (Message, error) {
	d := &decoder{data: envelope}

	tag, err := d.readString()
	if err != nil {
		return Message{}, err
	}

	msg := Message{Type: MessageType(tag)}
	switch msg.Type {
	case TypePlayerData:
		err = c.decodePlayerData(d, &msg)
	case TypePlayerRemove:
		msg.PlayerID, err = d.readString()
	case TypeRefresh:
	case TypeServerInfo:
		err = decodeServerInfo(d, &msg)
	default:
		err = fmt.Errorf("%w: unknown message type %q", ErrMalformedMessage, tag)
	}
	if err != nil {
		return Message{}, err
	}
	if rest := len(d.data) - d.off; rest != 0 {
		return Message{}, fmt.Errorf("%w: %d trailing bytes after %s", ErrMalformedMessage, rest, msg.Type)
	}
	return msg, nil
}

func (c *Codec) decodePlayerData(d *decoder, msg *Message) error {
	var err error
	if msg.PlayerID, err = d.readString(); err != nil {
		return err
	}
	if msg.Compressed, err = d.readBool(); err != nil {
		return err
	}

	if !msg.Compressed {
		payload, err := d.readString()
		if err != nil {
			return err
		}
		msg.Payload = []byte(payload)
		return nil
	}

	size, err := d.readInt32()
	if err != nil {
		return err
	}
	compressed, err := d.take(int(size))
	if err != nil {
		return err
	}
	msg.Payload, err = decompress(compressed, c.Config().MaxDecompressedSize)
	return err
}

func decodeServerInfo(d *decoder, msg *Message) error {
	version, err := d.readString()
	if err != nil {
		return err
	}
	online, err := d.readInt32()
	if err != nil {
		return err
	}
	msg.ServerInfo = &ServerInfo{Version: version, OnlinePlayers: int(online)}
	return nil
}
