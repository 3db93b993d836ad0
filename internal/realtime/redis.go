package realtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// removeByConnScript deletes every presence field whose value is the
// closing connection. Running it as one script keeps a concurrent Register
// for a new connection from being lost.
var removeByConnScript = redis.NewScript(`
	local entries = redis.call('HGETALL', KEYS[1])
	local removed = 0
	for i = 1, #entries, 2 do
		if entries[i + 1] == ARGV[1] then
			redis.call('HDEL', KEYS[1], entries[i])
			removed = removed + 1
		end
	end
	return removed
`)

// RedisPresence is a PresenceStore shared by every process using the same
// Redis and key prefix. Entries live in one hash: user id -> connection id.
type RedisPresence struct {
	client redis.UniversalClient
	key    string
}

var _ PresenceStore = (*RedisPresence)(nil)

func NewRedisPresence(client redis.UniversalClient, prefix string) *RedisPresence {
	return &RedisPresence{client: client, key: prefix + "presence"}
}

func (p *RedisPresence) Register(ctx context.Context, userID int64, connID string) error {
	if err := p.client.HSet(ctx, p.key, strconv.FormatInt(userID, 10), connID).Err(); err != nil {
		return fmt.Errorf("presence register: %w", err)
	}
	return nil
}

func (p *RedisPresence) Lookup(ctx context.Context, userID int64) (string, bool, error) {
	connID, err := p.client.HGet(ctx, p.key, strconv.FormatInt(userID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("presence lookup: %w", err)
	}
	return connID, true, nil
}

func (p *RedisPresence) RemoveByConnection(ctx context.Context, connID string) error {
	if err := removeByConnScript.Run(ctx, p.client, []string{p.key}, connID).Err(); err != nil {
		return fmt.Errorf("presence remove: %w", err)
	}
	return nil
}

func (p *RedisPresence) Online(ctx context.Context) ([]int64, error) {
	fields, err := p.client.HKeys(ctx, p.key).Result()
	if err != nil {
		return nil, fmt.Errorf("presence online: %w", err)
	}
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// RedisRooms is a RoomStore backed by two sets per key: room -> connections
// and connection -> rooms. Every command touches a single key, so the store
// also runs against Redis Cluster, where room and connection keys land in
// different slots. Writes are pipelined rather than transactional for the
// same reason; a reverse-index entry left behind by a failed write is
// removed by the next sweep.
type RedisRooms struct {
	client     redis.UniversalClient
	roomPrefix string
	connPrefix string
}

var _ RoomStore = (*RedisRooms)(nil)

func NewRedisRooms(client redis.UniversalClient, prefix string) *RedisRooms {
	return &RedisRooms{
		client:     client,
		roomPrefix: prefix + "room:",
		connPrefix: prefix + "conn-rooms:",
	}
}

func (r *RedisRooms) Join(ctx context.Context, connID, roomID string) error {
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.roomPrefix+roomID, connID)
		pipe.SAdd(ctx, r.connPrefix+connID, roomID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("room join: %w", err)
	}
	return nil
}

func (r *RedisRooms) Leave(ctx context.Context, connID, roomID string) error {
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, r.roomPrefix+roomID, connID)
		pipe.SRem(ctx, r.connPrefix+connID, roomID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("room leave: %w", err)
	}
	return nil
}

func (r *RedisRooms) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := r.client.SMembers(ctx, r.roomPrefix+roomID).Result()
	if err != nil {
		return nil, fmt.Errorf("room members: %w", err)
	}
	slices.Sort(members)
	return members, nil
}

// RemoveConnection removes connID from every room it joined and drops its
// reverse index. The hub handles a connection's events one at a time, so no
// join for connID can land between the read and the removals.
func (r *RedisRooms) RemoveConnection(ctx context.Context, connID string) error {
	connKey := r.connPrefix + connID
	rooms, err := r.client.SMembers(ctx, connKey).Result()
	if err != nil {
		return fmt.Errorf("room sweep: %w", err)
	}
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, room := range rooms {
			pipe.SRem(ctx, r.roomPrefix+room, connID)
		}
		pipe.Del(ctx, connKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("room sweep: %w", err)
	}
	return nil
}
