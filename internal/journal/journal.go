package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"example.com/puyo-bridge/internal/frame"
	"example.com/puyo-bridge/internal/gameapi"
	"github.com/redis/go-redis/v9"
)

// Journal keeps the frames sent to the bot and the last polled state of every
// game in Redis, so a game can be replayed after the fact.
type Journal struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	return &Journal{rdb: rdb, ttl: ttl, log: log.With("component", "journal")}
}

func framesKey(gameID string) string {
	return fmt.Sprintf("game:%s:frames", gameID)
}

func stateKey(gameID string) string {
	return fmt.Sprintf("game:%s:state", gameID)
}

// AppendFrame adds one wire frame to the game's log and refreshes its TTL.
func (j *Journal) AppendFrame(ctx context.Context, gameID, wire string) error {
	key := framesKey(gameID)
	pipe := j.rdb.TxPipeline()
	pipe.RPush(ctx, key, wire)
	if j.ttl > 0 {
		pipe.Expire(ctx, key, j.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append frame: %w", err)
	}
	return nil
}

// Record implements bridge.Recorder. A journal outage must not stop play, so
// errors are only logged.
func (j *Journal) Record(ctx context.Context, gameID string, f frame.Frame, wire string) {
	if err := j.AppendFrame(ctx, gameID, wire); err != nil {
		j.log.Warn("journal append failed", "game", gameID, "frame", f.ID, "err", err)
	}
}

func (j *Journal) Frames(ctx context.Context, gameID string) ([]string, error) {
	frames, err := j.rdb.LRange(ctx, framesKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return frames, nil
}

func (j *Journal) SaveState(ctx context.Context, gameID string, st gameapi.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return j.rdb.Set(ctx, stateKey(gameID), b, j.ttl).Err()
}

func (j *Journal) LoadState(ctx context.Context, gameID string) (gameapi.State, bool, error) {
	val, err := j.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return gameapi.State{}, false, nil
	}
	if err != nil {
		return gameapi.State{}, false, err
	}

	var st gameapi.State
	if err := json.Unmarshal(val, &st); err != nil {
		return gameapi.State{}, false, err
	}
	return st, true, nil
}

func (j *Journal) Delete(ctx context.Context, gameID string) error {
	return j.rdb.Del(ctx, framesKey(gameID), stateKey(gameID)).Err()
}
