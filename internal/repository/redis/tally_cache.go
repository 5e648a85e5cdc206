package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Nemi_Hub/internal/decision"

	"github.com/redis/go-redis/v9"
)

const (
	TallyTTL         = 10 * time.Minute
	TallyVersionTTL  = time.Hour
	LockTTL          = 300 * time.Millisecond
	TallyKeyPrefix   = "decision:tally"      // 缓存某个决策的计票结果
	VersionKeyPrefix = "decision:tally:ver"  // 每次失效自增，回填时比对
	LockKeyPrefix    = "lock:decision:tally" // 重建计票的分布式锁
)

type TallyCacheRepository struct {
	RDB *redis.Client
	ttl time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewTallyCacheRepository(rdb *redis.Client) *TallyCacheRepository {
	return &TallyCacheRepository{RDB: rdb, ttl: TallyTTL}
}

func (r *TallyCacheRepository) tallyKey(decisionID uint64) string {
	return fmt.Sprintf("%s:%d", TallyKeyPrefix, decisionID)
}

func (r *TallyCacheRepository) versionKey(decisionID uint64) string {
	return fmt.Sprintf("%s:%d", VersionKeyPrefix, decisionID)
}

// Get 命中返回 ok=true
func (r *TallyCacheRepository) Get(ctx context.Context, decisionID uint64) (decision.Tally, bool, error) {
	var t decision.Tally
	b, err := r.RDB.Get(ctx, r.tallyKey(decisionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return t, false, nil
	}
	if err != nil {
		return t, false, err
	}
	if err := json.Unmarshal(b, &t); err != nil {
		// 脏数据直接删掉，交给回源重建
		_ = r.RDB.Del(ctx, r.tallyKey(decisionID)).Err()
		return t, false, nil
	}
	return t, true, nil
}

// Version 回源前读取，之后传给 Set
func (r *TallyCacheRepository) Version(ctx context.Context, decisionID uint64) (int64, error) {
	v, err := r.RDB.Get(ctx, r.versionKey(decisionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

var setIfVersionScript = redis.NewScript(`
local v = redis.call("get", KEYS[2])
if not v then v = "0" end
if v ~= ARGV[1] then
  return 0
end
redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1`)

// Set 回填计票结果；回源期间缓存被失效过(版本号变了)则放弃回填
func (r *TallyCacheRepository) Set(ctx context.Context, decisionID uint64, version int64, t decision.Tally) (bool, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return false, err
	}
	n, err := setIfVersionScript.Run(ctx, r.RDB,
		[]string{r.tallyKey(decisionID), r.versionKey(decisionID)},
		version, b, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var invalidateScript = redis.NewScript(`
redis.call("incr", KEYS[2])
redis.call("pexpire", KEYS[2], ARGV[1])
return redis.call("del", KEYS[1])`)

// Delete 投票或状态变化后删除缓存，并推进版本号，让进行中的旧回填失效
func (r *TallyCacheRepository) Delete(ctx context.Context, decisionID uint64) error {
	return invalidateScript.Run(ctx, r.RDB,
		[]string{r.tallyKey(decisionID), r.versionKey(decisionID)},
		TallyVersionTTL.Milliseconds(),
	).Err()
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, decisionID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, decisionID)
	return l.RDB.SetNX(ctx, key, token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 用lua保证只释放自己的锁
func (l *DistLock) Release(ctx context.Context, decisionID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, decisionID)
	return releaseScript.Run(ctx, l.RDB, []string{key}, token).Err()
}
