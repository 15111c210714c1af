package cache

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Janitor 在同一个 Store 上执行两条相互独立的淘汰策略：
// 按年龄（TTL）与按总量（LRU）。两条策略都只依赖 List() 的元数据。
type Janitor struct {
	store    Store
	logger   *logrus.Logger
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
}

// NewJanitor 构造淘汰引擎，默认使用 time.Now 作为时钟。
func NewJanitor(store Store, logger *logrus.Logger, ttl time.Duration, maxBytes int64) *Janitor {
	return &Janitor{
		store:    store,
		logger:   logger,
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// SweepExpired 删除所有年龄超过 TTL 的条目，无视当前总量。
// 单个条目删除失败只记日志并跳过，整轮清扫不会中途放弃。
func (j *Janitor) SweepExpired(ctx context.Context) int {
	entries, err := j.store.List()
	if err != nil {
		j.logger.WithFields(logrus.Fields{
			"action": "cache_sweep",
		}).Warnf("枚举缓存目录失败: %v", err)
		return 0
	}

	cutoff := j.now().Add(-j.ttl)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		// 只清理年龄严格超过 TTL 的条目，恰好等于 TTL 的留下。
		if !entry.CreatedAt.Before(cutoff) {
			continue
		}
		if err := j.store.Remove(entry.Key); err != nil {
			j.logger.WithFields(logrus.Fields{
				"action": "evict_remove_failed",
				"key":    string(entry.Key),
			}).Warnf("删除过期条目失败: %v", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.WithFields(logrus.Fields{
			"action":  "cache_sweep",
			"removed": removed,
			"scanned": len(entries),
		}).Info("过期条目清理完成")
	}
	return removed
}

// EnsureCapacity 保证 已用总量 + incoming 不超过上限：不足时按
// LastAccessAt 从旧到新逐个删除（LRU）。写入前以 incoming = 单文件上限
// 预检，确保单次写入本身不会把缓存顶破上限。
//
// 排序基于 List() 的文件名序做稳定排序，同一 atime 的条目在一轮内
// 淘汰顺序确定，便于测试。
func (j *Janitor) EnsureCapacity(ctx context.Context, incoming int64) (int, error) {
	entries, err := j.store.List()
	if err != nil {
		return 0, err
	}

	var used int64
	for _, entry := range entries {
		used += entry.SizeBytes
	}
	if used+incoming <= j.maxBytes {
		return 0, nil
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].LastAccessAt.Before(entries[b].LastAccessAt)
	})

	removed := 0
	for _, entry := range entries {
		if used+incoming <= j.maxBytes {
			break
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := j.store.Remove(entry.Key); err != nil {
			j.logger.WithFields(logrus.Fields{
				"action": "evict_remove_failed",
				"key":    string(entry.Key),
			}).Warnf("删除条目失败: %v", err)
			continue
		}
		used -= entry.SizeBytes
		removed++
	}

	j.logger.WithFields(logrus.Fields{
		"action":     "evict_capacity",
		"removed":    removed,
		"used_bytes": used,
		"max_bytes":  j.maxBytes,
	}).Info("容量淘汰完成")
	return removed, nil
}

// Run 以固定间隔执行 TTL 清扫与容量检查，直到 ctx 取消；用于常驻进程。
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.SweepExpired(ctx)
			if _, err := j.EnsureCapacity(ctx, 0); err != nil && ctx.Err() == nil {
				j.logger.WithFields(logrus.Fields{
					"action": "evict_capacity",
				}).Warnf("容量检查失败: %v", err)
			}
		}
	}
}
