// FILE: internal/repository/implementation/redis_computation_state_repository_impl.go
// Computation state shared between server instances through Redis
package implementation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dota-report-be/internal/entity"
	"dota-report-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix = "dota-report"
	stateTTL       = time.Hour
)

// Keys: run, cancelled run, pending cancel, progress hash.
var (
	beginRunScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
redis.call('DEL', KEYS[2])
redis.call('HSET', KEYS[4], 'current', 0, 'total', 0)
redis.call('EXPIRE', KEYS[4], ARGV[2])
local pending = redis.call('GET', KEYS[3])
redis.call('DEL', KEYS[3])
if pending then return 1 end
return 0`)

	endRunScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  redis.call('DEL', KEYS[1])
end
return 0`)

	cancelScript = redis.NewScript(`
local run = redis.call('GET', KEYS[1])
if run then
  redis.call('SET', KEYS[2], run, 'EX', ARGV[1])
  redis.call('HSET', KEYS[4], 'current', 0, 'total', 0)
  return run
end
redis.call('SET', KEYS[3], '1', 'EX', ARGV[1])
return ''`)

	setProgressScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) ~= ARGV[1] or redis.call('GET', KEYS[2]) == ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[4], 'current', ARGV[2], 'total', ARGV[3])
redis.call('EXPIRE', KEYS[4], ARGV[4])
return 1`)
)

type RedisComputationStateRepositoryImpl struct {
	rdb *redis.Client
}

func NewRedisComputationStateRepository(rdb *redis.Client) contract.ComputationStateRepository {
	return &RedisComputationStateRepositoryImpl{rdb: rdb}
}

func stateKey(owner, name string) string {
	return fmt.Sprintf("%s:%s:%s", stateKeyPrefix, owner, name)
}

func stateKeys(owner string) []string {
	return []string{
		stateKey(owner, "run"),
		stateKey(owner, "cancelled"),
		stateKey(owner, "cancel_pending"),
		stateKey(owner, "progress"),
	}
}

var ttlSeconds = int(stateTTL / time.Second)

func (r *RedisComputationStateRepositoryImpl) BeginRun(ctx context.Context, owner, runId string) (bool, error) {
	pending, err := beginRunScript.Run(ctx, r.rdb, stateKeys(owner), runId, ttlSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to begin run: %w", err)
	}
	return pending == 1, nil
}

func (r *RedisComputationStateRepositoryImpl) EndRun(ctx context.Context, owner, runId string) error {
	if err := endRunScript.Run(ctx, r.rdb, stateKeys(owner), runId).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to end run: %w", err)
	}
	return nil
}

func (r *RedisComputationStateRepositoryImpl) Cancel(ctx context.Context, owner string) (string, error) {
	runId, err := cancelScript.Run(ctx, r.rdb, stateKeys(owner), ttlSeconds).Text()
	if err != nil {
		return "", fmt.Errorf("failed to cancel run: %w", err)
	}
	return runId, nil
}

func (r *RedisComputationStateRepositoryImpl) ClearPendingCancel(ctx context.Context, owner string) error {
	if err := r.rdb.Del(ctx, stateKey(owner, "cancel_pending")).Err(); err != nil {
		return fmt.Errorf("failed to clear pending cancel: %w", err)
	}
	return nil
}

func (r *RedisComputationStateRepositoryImpl) IsCancelled(ctx context.Context, owner, runId string) (bool, error) {
	values, err := r.rdb.MGet(ctx, stateKey(owner, "run"), stateKey(owner, "cancelled")).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read run state: %w", err)
	}
	current, _ := values[0].(string)
	cancelled, _ := values[1].(string)
	return current != runId || cancelled == runId, nil
}

func (r *RedisComputationStateRepositoryImpl) SetProgress(ctx context.Context, owner, runId string, progress entity.Progress) error {
	err := setProgressScript.Run(ctx, r.rdb, stateKeys(owner), runId, progress.Current, progress.Total, ttlSeconds).Err()
	if err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

func (r *RedisComputationStateRepositoryImpl) GetProgress(ctx context.Context, owner string) (entity.Progress, error) {
	values, err := r.rdb.HGetAll(ctx, stateKey(owner, "progress")).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.Progress{}, nil
		}
		return entity.Progress{}, fmt.Errorf("failed to read progress: %w", err)
	}

	var progress entity.Progress
	if v, ok := values["current"]; ok {
		progress.Current, _ = strconv.Atoi(v)
	}
	if v, ok := values["total"]; ok {
		progress.Total, _ = strconv.Atoi(v)
	}
	return progress, nil
}
