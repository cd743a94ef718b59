package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BlockFox/internal/pkg/cache"
	"github.com/ManuelReschke/BlockFox/internal/pkg/database"
)

// transactionsKey is a hash of explorer id to transactions ingested since
// the last flush.
const transactionsKey = "explorer:counters:transactions"

func field(explorerID uint) string {
	return strconv.FormatUint(uint64(explorerID), 10)
}

func AddTransactions(ctx context.Context, explorerID uint, n int64) error {
	if n <= 0 {
		return nil
	}
	return cache.GetClient().HIncrBy(ctx, transactionsKey, field(explorerID), n).Err()
}

// Pending returns the not yet flushed counter of an explorer.
func Pending(ctx context.Context, explorerID uint) (int64, error) {
	v, err := cache.GetClient().HGet(ctx, transactionsKey, field(explorerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// FlushAll moves the counters into explorer_subscriptions.transaction_quota.
func FlushAll() error {
	ctx := context.Background()
	increments, err := drain(ctx, cache.GetClient(), transactionsKey)
	if err != nil || len(increments) == 0 {
		return err
	}
	sql, args := buildIncrementSQL("explorer_subscriptions", "transaction_quota", increments)
	return database.GetDB().WithContext(ctx).Exec(sql, args...).Error
}

// drain renames key away before reading it, so increments arriving during
// the flush land in a fresh hash.
func drain(ctx context.Context, rdb *redis.Client, key string) (map[string]string, error) {
	snapshot := fmt.Sprintf("%s:flush:%d", key, time.Now().UnixNano())
	if err := rdb.Rename(ctx, key, snapshot).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such key") {
			return nil, nil
		}
		return nil, err
	}
	defer rdb.Del(ctx, snapshot)
	return rdb.HGetAll(ctx, snapshot).Result()
}

type increment struct {
	explorerID uint64
	delta      int64
}

func parseIncrements(data map[string]string) []increment {
	out := make([]increment, 0, len(data))
	for k, v := range data {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		delta, err := strconv.ParseInt(v, 10, 64)
		if err != nil || delta == 0 {
			continue
		}
		out = append(out, increment{explorerID: id, delta: delta})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].explorerID < out[j].explorerID })
	return out
}

// buildIncrementSQL turns the counters into one UPDATE with a CASE per
// explorer. It returns an empty statement when nothing is left to apply.
func buildIncrementSQL(table, column string, data map[string]string) (string, []interface{}) {
	incs := parseIncrements(data)
	if len(incs) == 0 {
		return "", nil
	}

	cases := make([]interface{}, 0, len(incs)*2)
	ids := make([]interface{}, 0, len(incs))
	for _, inc := range incs {
		cases = append(cases, inc.explorerID, inc.delta)
		ids = append(ids, inc.explorerID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(incs)), ",")
	sql := fmt.Sprintf("UPDATE %s SET %s = %s + CASE explorer_id%s END WHERE deleted_at IS NULL AND explorer_id IN (%s)",
		table, column, column, strings.Repeat(" WHEN ? THEN ?", len(incs)), placeholders)
	return sql, append(cases, ids...)
}
