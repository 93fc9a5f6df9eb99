package redis

import (
	"fmt"

	"github.com/mcoot/playerinfo-proxy/internal/model"
)

// Key prefix for all proxy data
const keyPrefix = "pinfo"

// serversKey returns the Redis key for the SET of known backend names
func serversKey() string {
	return fmt.Sprintf("%s:servers", keyPrefix)
}

// payloadsKey returns the Redis key for a backend's HASH of player id -> payload
func payloadsKey(server model.ServerName) string {
	return fmt.Sprintf("%s:server:%s:payloads", keyPrefix, server)
}

// updatedKey returns the Redis key for a backend's ZSET of player id scored by
// last update time in Unix microseconds
func updatedKey(server model.ServerName) string {
	return fmt.Sprintf("%s:server:%s:updated", keyPrefix, server)
}

// infoKey returns the Redis key for a backend's self-reported status HASH
func infoKey(server model.ServerName) string {
	return fmt.Sprintf("%s:server:%s:info", keyPrefix, server)
}
