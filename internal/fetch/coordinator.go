package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/cache"
	"github.com/clipfetch/clipfetch/internal/platform"
)

// Coordinator 对同一缓存键的并发请求做 single-flight 去重：任一时刻每个
// 键至多一个外部进程在跑，后到的请求挂到在途任务上等待同一结果。
type Coordinator struct {
	store        cache.Store
	runner       Runner
	logger       *logrus.Logger
	timeout      time.Duration
	maxFileBytes int64

	// mu 保护任务表，"不存在则创建、存在则挂靠"必须在同一临界区内完成，
	// 否则竞态会击穿 single-flight 造成重复进程。
	mu    sync.Mutex
	tasks map[cache.Key]*task
}

// task 表示一个键上的在途下载；done 关闭即结算，结果字段此后只读。
type task struct {
	startedAt time.Time
	waiters   int
	done      chan struct{}
	entry     *cache.Entry
	err       error
}

// NewCoordinator 构造下载编排器。
func NewCoordinator(store cache.Store, runner Runner, logger *logrus.Logger, timeout time.Duration, maxFileBytes int64) *Coordinator {
	return &Coordinator{
		store:        store,
		runner:       runner,
		logger:       logger,
		timeout:      timeout,
		maxFileBytes: maxFileBytes,
		tasks:        make(map[cache.Key]*task),
	}
}

// Fetch 为键取回缓存条目：存在在途任务则注册为等待者；否则成为发起者，
// 启动一次外部下载并把同一结果分发给自己与所有等待者。
//
// 等待者的 ctx 取消只让它自己退场，不影响在途下载；发起者的下载在独立
// 的超时上下文里运行到结束为止。
func (c *Coordinator) Fetch(ctx context.Context, key cache.Key, url string, profile platform.FetchProfile) (*cache.Entry, error) {
	c.mu.Lock()
	if t, ok := c.tasks[key]; ok {
		t.waiters++
		c.mu.Unlock()
		return c.await(ctx, t)
	}

	t := &task{
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	c.tasks[key] = t
	c.mu.Unlock()

	// 下载在独立 goroutine 中执行，发起者同样只是等待结算：
	// 即便发起请求的 ctx 被取消，飞行中的下载也会跑到完成或超时。
	go c.flight(key, url, profile, t)

	return c.await(ctx, t)
}

func (c *Coordinator) await(ctx context.Context, t *task) (*cache.Entry, error) {
	select {
	case <-t.done:
		return t.entry, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// flight 执行一次下载并结算任务：先从任务表摘除再关闭 done，保证结算后
// 到达的新请求开启全新任务。
func (c *Coordinator) flight(key cache.Key, url string, profile platform.FetchProfile, t *task) {
	entry, err := c.download(key, url, profile)

	c.mu.Lock()
	delete(c.tasks, key)
	waiters := t.waiters
	c.mu.Unlock()

	t.entry = entry
	t.err = err
	close(t.done)

	fields := logrus.Fields{
		"action":      "fetch_flight",
		"key":         string(key),
		"waiters":     waiters,
		"duration_ms": time.Since(t.startedAt).Milliseconds(),
	}
	if err != nil {
		fields["failure_kind"] = string(KindOf(err))
		c.logger.WithFields(fields).Warn("下载失败")
		return
	}
	fields["size_bytes"] = entry.SizeBytes
	c.logger.WithFields(fields).Info("下载完成")
}

// download 是发起者独占的下载-校验-发布路径；等待者从不触碰 Store。
func (c *Coordinator) download(key cache.Key, url string, profile platform.FetchProfile) (*cache.Entry, error) {
	pw, err := c.store.BeginWrite(key)
	if err != nil {
		return nil, newFailure(KindUnexpected, err)
	}

	runCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if runErr := c.runner.Run(runCtx, url, pw.TempPath(), profile); runErr != nil {
		if abortErr := pw.Abort(); abortErr != nil {
			c.logger.WithFields(logrus.Fields{
				"action": "fetch_abort_failed",
				"key":    string(key),
			}).Warnf("清理临时文件失败: %v", abortErr)
		}
		if errors.Is(runErr, context.DeadlineExceeded) || runCtx.Err() == context.DeadlineExceeded {
			return nil, newFailure(KindTimeout, runErr)
		}
		return nil, newFailure(KindToolError, runErr)
	}

	info, err := os.Stat(pw.TempPath())
	if err != nil {
		pw.Abort()
		return nil, newFailure(KindUnexpected, err)
	}
	if info.Size() > c.maxFileBytes {
		// 超限产物直接丢弃，绝不发布。
		pw.Abort()
		return nil, newFailure(KindOversize, fmt.Errorf("artifact is %d bytes, limit %d", info.Size(), c.maxFileBytes))
	}

	entry, err := pw.Commit()
	if err != nil {
		return nil, newFailure(KindUnexpected, err)
	}
	return entry, nil
}
