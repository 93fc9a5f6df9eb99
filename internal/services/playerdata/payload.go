package playerdata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// payloadHeader is the part of a collector payload the proxy reads.
// Everything else is passed through untouched.
type payloadHeader struct {
	UUID    string            `json:"uuid"`
	Name    *string           `json:"name"`
	Players []json.RawMessage `json:"players"`
}

func parseHeader(payload []byte) (payloadHeader, error) {
	var h payloadHeader
	if err := json.Unmarshal(payload, &h); err != nil {
		return payloadHeader{}, fmt.Errorf("parse payload: %w", err)
	}
	return h, nil
}

// playerName extracts the name field, reporting false when the payload
// cannot be parsed or carries no name.
func playerName(payload []byte) (string, bool) {
	h, err := parseHeader(payload)
	if err != nil || h.Name == nil {
		return "", false
	}
	return *h.Name, true
}

func nameMatches(payload []byte, name string) bool {
	got, ok := playerName(payload)
	return ok && strings.EqualFold(got, name)
}

// splitPayload turns a collector payload into per-player entries. A payload
// with a top-level uuid is a single player; one with a players array is the
// legacy batch format, where each element carries its own uuid and name.
func splitPayload(payload []byte) (map[model.PlayerID][]byte, error) {
	h, err := parseHeader(payload)
	if err != nil {
		return nil, err
	}

	if h.UUID != "" {
		id, err := model.ParsePlayerID(h.UUID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, h.UUID)
		}
		return map[model.PlayerID][]byte{id: payload}, nil
	}

	if h.Players == nil {
		return nil, model.ErrPayloadNoPlayer
	}

	entries := make(map[model.PlayerID][]byte, len(h.Players))
	for _, raw := range h.Players {
		elem, err := parseHeader(raw)
		if err != nil || elem.Name == nil || elem.UUID == "" {
			continue
		}
		id, err := model.ParsePlayerID(elem.UUID)
		if err != nil {
			continue
		}
		entries[id] = raw
	}
	return entries, nil
}
