package viewguard

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobportal:viewguard:"

// Guard 防止同一用户在窗口期内重复计入职位浏览量。
type Guard struct {
	rdb    *redis.Client
	window time.Duration
}

func NewGuard(rdb *redis.Client, window time.Duration) *Guard {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &Guard{
		rdb:    rdb,
		window: window,
	}
}

// ShouldCount 判断这次浏览是否应计入计数。
//
// 基于 SetNX：窗口内同一 (job, viewer) 只有第一次返回 true。
// Redis 不可用时按应计数处理，浏览量宁可偏多也不丢。
func (g *Guard) ShouldCount(ctx context.Context, jobID, viewerID uint) (bool, error) {
	if g == nil || g.rdb == nil {
		return true, nil
	}
	key := fmt.Sprintf("%s%d:%d", keyPrefix, jobID, viewerID)
	ok, err := g.rdb.SetNX(ctx, key, "1", g.window).Result()
	if err != nil {
		return true, fmt.Errorf("viewguard setnx: %w", err)
	}
	return ok, nil
}

// Reset 清除某个 (job, viewer) 的窗口记录。
func (g *Guard) Reset(ctx context.Context, jobID, viewerID uint) error {
	if g == nil || g.rdb == nil {
		return nil
	}
	key := fmt.Sprintf("%s%d:%d", keyPrefix, jobID, viewerID)
	if err := g.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("viewguard del: %w", err)
	}
	return nil
}
