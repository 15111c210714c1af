// Package retrieve 是取回流水线的组合根：分类 → 派生键 → 缓存查找 →
// （未命中时）容量预检 → 下载编排 → 发布结果，并保证每个逻辑请求
// 恰好发射一条统计事件。
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/cache"
	"github.com/clipfetch/clipfetch/internal/fetch"
	"github.com/clipfetch/clipfetch/internal/logging"
	"github.com/clipfetch/clipfetch/internal/platform"
	"github.com/clipfetch/clipfetch/internal/stats"
)

// ErrNoLink 表示文本中没有受支持的链接。这是预期中的负向结果，不是故障。
var ErrNoLink = errors.New("no supported link found")

// Request 是一次来自聊天端的逻辑请求。
type Request struct {
	UserID int64
	Text   string
}

// Result 是一次成功取回：条目已发布在缓存里，调用方只拿路径不拿所有权。
type Result struct {
	Entry    *cache.Entry
	Platform platform.Tag
	CacheHit bool
}

// Fetcher 抽象下载编排器，便于测试注入。
type Fetcher interface {
	Fetch(ctx context.Context, key cache.Key, url string, profile platform.FetchProfile) (*cache.Entry, error)
}

// Options 汇总流水线的全部依赖。
type Options struct {
	Store   cache.Store
	Janitor *cache.Janitor
	Fetcher Fetcher
	Sink    stats.Sink
	Logger  *logrus.Logger

	// MaxFileBytes 用作写前容量预检的预留额度。
	MaxFileBytes int64
	// FormatOverride 非空时覆盖平台自身的格式偏好。
	FormatOverride string
}

// Retriever 按请求驱动整条流水线。
type Retriever struct {
	store          cache.Store
	janitor        *cache.Janitor
	fetcher        Fetcher
	sink           stats.Sink
	logger         *logrus.Logger
	maxFileBytes   int64
	formatOverride string
	now            func() time.Time
}

// New 构造流水线，所有依赖均为必填。
func New(opts Options) (*Retriever, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Janitor == nil {
		return nil, errors.New("janitor is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("stats sink is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.MaxFileBytes <= 0 {
		return nil, fmt.Errorf("invalid max file bytes: %d", opts.MaxFileBytes)
	}
	return &Retriever{
		store:          opts.Store,
		janitor:        opts.Janitor,
		fetcher:        opts.Fetcher,
		sink:           opts.Sink,
		logger:         opts.Logger,
		maxFileBytes:   opts.MaxFileBytes,
		formatOverride: opts.FormatOverride,
		now:            time.Now,
	}, nil
}

// Retrieve 处理一个请求。返回值三选一：成功的 *Result、ErrNoLink、
// 或携带分类的 *fetch.Failure。
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Result, error) {
	started := r.now()
	requestID := uuid.NewString()

	url, tag, ok := platform.Classify(req.Text)
	if !ok {
		r.emit(requestID, req.UserID, platform.TagOther, stats.OutcomeNoLink, started)
		return nil, ErrNoLink
	}

	key := cache.DeriveKey(url)

	// 命中路径：Touch 同时完成存在性检查与 atime 回写，一次 stat 搞定。
	if entry, err := r.store.Touch(key); err == nil {
		r.emit(requestID, req.UserID, tag, stats.OutcomeHit, started)
		r.logger.WithFields(logging.RequestFields(requestID, req.UserID, string(tag), string(stats.OutcomeHit), true)).
			Info("缓存命中")
		return &Result{Entry: entry, Platform: tag, CacheHit: true}, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		// 命中路径上的磁盘故障按未命中继续走下载，只记日志。
		r.logger.WithFields(logrus.Fields{
			"action":     "cache_get_failed",
			"request_id": requestID,
			"key":        string(key),
		}).Warnf("读取缓存失败: %v", err)
	}

	// 写前预检：以单文件上限做预留，保证本次写入不会顶破容量上限。
	if _, err := r.janitor.EnsureCapacity(ctx, r.maxFileBytes); err != nil {
		r.logger.WithFields(logrus.Fields{
			"action":     "evict_precheck_failed",
			"request_id": requestID,
		}).Warnf("容量预检失败: %v", err)
	}

	profile := r.fetchProfile(tag)
	entry, err := r.fetcher.Fetch(ctx, key, url, profile)
	if err != nil {
		outcome := outcomeForError(err)
		r.emit(requestID, req.UserID, tag, outcome, started)
		r.logger.WithFields(logging.RequestFields(requestID, req.UserID, string(tag), string(outcome), false)).
			Warn("取回失败")
		return nil, err
	}

	r.emit(requestID, req.UserID, tag, stats.OutcomeSuccess, started)
	r.logger.WithFields(logging.RequestFields(requestID, req.UserID, string(tag), string(stats.OutcomeSuccess), false)).
		Info("取回成功")
	return &Result{Entry: entry, Platform: tag, CacheHit: false}, nil
}

func (r *Retriever) fetchProfile(tag platform.Tag) platform.FetchProfile {
	profile := platform.FetchProfile{}
	if desc, ok := platform.Resolve(tag); ok {
		profile = desc.Fetch
	}
	if r.formatOverride != "" {
		profile.FormatHint = r.formatOverride
	}
	return profile
}

// emit 发射统计事件。用独立的 Background ctx，等待者取消不影响计数。
func (r *Retriever) emit(requestID string, userID int64, tag platform.Tag, outcome stats.Outcome, started time.Time) {
	event := stats.Event{
		RequestID: requestID,
		UserID:    userID,
		Platform:  tag,
		Outcome:   outcome,
		Duration:  r.now().Sub(started),
	}
	if err := r.sink.Record(context.Background(), event); err != nil {
		r.logger.WithFields(logrus.Fields{
			"action":     "stats_record_failed",
			"request_id": requestID,
		}).Warnf("统计事件落盘失败: %v", err)
	}
}

// outcomeForError 把下载失败分类映射到统计终态。
func outcomeForError(err error) stats.Outcome {
	switch fetch.KindOf(err) {
	case fetch.KindTimeout:
		return stats.OutcomeTimeout
	case fetch.KindToolError:
		return stats.OutcomeToolError
	case fetch.KindOversize:
		return stats.OutcomeOversize
	default:
		return stats.OutcomeUnexpected
	}
}
