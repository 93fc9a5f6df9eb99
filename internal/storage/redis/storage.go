package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/playerinfo-proxy/internal/model"
	"github.com/mcoot/playerinfo-proxy/internal/storage"
)

// sweepScript drops every member scored at or below ARGV[1] from the
// updated ZSET together with its payload, atomically per backend.
var sweepScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
	redis.call('HDEL', KEYS[2], id)
end
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
return #ids
`)

// Storage is a Redis-backed implementation of the storage interface.
// Several proxies may share one Redis so they all serve the same view.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.PlayerStore = (*Storage)(nil)

func toScore(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func fromScore(score float64) time.Time {
	return time.UnixMicro(int64(score)).UTC()
}

// Record operations

func (s *Storage) Put(ctx context.Context, server model.ServerName, id model.PlayerID, record model.PlayerRecord) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, serversKey(), string(server))
		pipe.HSet(ctx, payloadsKey(server), string(id), record.Payload)
		pipe.ZAdd(ctx, updatedKey(server), redis.Z{Score: toScore(record.LastUpdated), Member: string(id)})
		return nil
	})
	return err
}

func (s *Storage) Get(ctx context.Context, server model.ServerName, id model.PlayerID) (model.PlayerRecord, bool, error) {
	pipe := s.client.Pipeline()
	payloadCmd := pipe.HGet(ctx, payloadsKey(server), string(id))
	scoreCmd := pipe.ZScore(ctx, updatedKey(server), string(id))
	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.PlayerRecord{}, false, err
	}

	payload, err := payloadCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return model.PlayerRecord{}, false, nil
	}
	if err != nil {
		return model.PlayerRecord{}, false, err
	}

	rec := model.PlayerRecord{Payload: payload}
	if score, err := scoreCmd.Result(); err == nil {
		rec.LastUpdated = fromScore(score)
	}
	return rec, true, nil
}

func (s *Storage) Delete(ctx context.Context, server model.ServerName, id model.PlayerID) (bool, error) {
	var hdel *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hdel = pipe.HDel(ctx, payloadsKey(server), string(id))
		pipe.ZRem(ctx, updatedKey(server), string(id))
		return nil
	})
	if err != nil {
		return false, err
	}
	return hdel.Val() > 0, nil
}

func (s *Storage) DeleteFromOthers(ctx context.Context, id model.PlayerID, keep model.ServerName) (int, error) {
	servers, err := s.Servers(ctx)
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	var dels []*redis.IntCmd
	for _, server := range servers {
		if server == keep {
			continue
		}
		dels = append(dels, pipe.HDel(ctx, payloadsKey(server), string(id)))
		pipe.ZRem(ctx, updatedKey(server), string(id))
	}
	if len(dels) == 0 {
		return 0, nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	removed := 0
	for _, cmd := range dels {
		removed += int(cmd.Val())
	}
	return removed, nil
}

func (s *Storage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	servers, err := s.Servers(ctx)
	if err != nil {
		return 0, err
	}

	// Exclusive bound: a record stamped exactly at cutoff survives
	maxScore := "(" + strconv.FormatInt(cutoff.UnixMicro(), 10)

	removed := 0
	for _, server := range servers {
		n, err := sweepScript.Run(ctx, s.client,
			[]string{updatedKey(server), payloadsKey(server)}, maxScore).Int()
		if err != nil {
			return removed, fmt.Errorf("sweep %s: %w", server, err)
		}
		removed += n
	}
	return removed, nil
}

// Queries

func (s *Storage) Servers(ctx context.Context) ([]model.ServerName, error) {
	members, err := s.client.SMembers(ctx, serversKey()).Result()
	if err != nil {
		return nil, err
	}
	servers := make([]model.ServerName, len(members))
	for i, m := range members {
		servers[i] = model.ServerName(m)
	}
	return servers, nil
}

func (s *Storage) Counts(ctx context.Context) (map[model.ServerName]int, error) {
	servers, err := s.Servers(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ServerName]int, len(servers))
	if len(servers) == 0 {
		return counts, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(servers))
	for i, server := range servers {
		cmds[i] = pipe.HLen(ctx, payloadsKey(server))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	for i, server := range servers {
		counts[server] = int(cmds[i].Val())
	}
	return counts, nil
}

func (s *Storage) Records(ctx context.Context, server model.ServerName) (map[model.PlayerID]model.PlayerRecord, error) {
	pipe := s.client.Pipeline()
	payloadsCmd := pipe.HGetAll(ctx, payloadsKey(server))
	scoresCmd := pipe.ZRangeWithScores(ctx, updatedKey(server), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	updated := make(map[string]time.Time, len(scoresCmd.Val()))
	for _, z := range scoresCmd.Val() {
		if member, ok := z.Member.(string); ok {
			updated[member] = fromScore(z.Score)
		}
	}

	records := make(map[model.PlayerID]model.PlayerRecord, len(payloadsCmd.Val()))
	for id, payload := range payloadsCmd.Val() {
		records[model.PlayerID(id)] = model.PlayerRecord{
			Payload:     []byte(payload),
			LastUpdated: updated[id],
		}
	}
	return records, nil
}

// Backend status

func (s *Storage) PutServerInfo(ctx context.Context, server model.ServerName, info model.ServerInfo) error {
	return s.client.HSet(ctx, infoKey(server),
		"version", info.Version,
		"online_players", info.OnlinePlayers,
		"reported_at", info.ReportedAt.UnixMicro(),
	).Err()
}

func (s *Storage) ServerInfo(ctx context.Context, server model.ServerName) (model.ServerInfo, bool, error) {
	fields, err := s.client.HGetAll(ctx, infoKey(server)).Result()
	if err != nil {
		return model.ServerInfo{}, false, err
	}
	if len(fields) == 0 {
		return model.ServerInfo{}, false, nil
	}

	online, _ := strconv.Atoi(fields["online_players"])
	reported, _ := strconv.ParseInt(fields["reported_at"], 10, 64)
	return model.ServerInfo{
		Version:       fields["version"],
		OnlinePlayers: online,
		ReportedAt:    time.UnixMicro(reported).UTC(),
	}, true, nil
}
