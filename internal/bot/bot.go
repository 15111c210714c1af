// Package bot 承载 Telegram 聊天入口：长轮询收消息，把含链接的文本
// 交给取回流水线，并用乌克兰语回应每一种结果。
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"

	"github.com/clipfetch/clipfetch/internal/retrieve"
	"github.com/clipfetch/clipfetch/internal/stats"
)

// Retriever 抽象取回流水线，便于测试注入。
type Retriever interface {
	Retrieve(ctx context.Context, req retrieve.Request) (*retrieve.Result, error)
}

// StatsReader 提供 /stats 命令所需的聚合读数。
type StatsReader interface {
	Snapshot(ctx context.Context) (*stats.Snapshot, error)
}

// Options 汇总机器人端的全部依赖。
type Options struct {
	Token     string
	Retriever Retriever
	Stats     StatsReader
	Limiter   *UserLimiter
	Logger    *logrus.Logger

	// RequestTimeout 限制单个请求在流水线内的总耗时，
	// 应略大于下载超时，给缓存与发布留余量。
	RequestTimeout time.Duration

	// MaxFileBytes 是单文件上限，用于向用户解释超限失败。
	MaxFileBytes int64
}

// Bot 包装 telebot 实例。telebot 为每条更新起一个 goroutine，
// 流水线必须在任意交错下安全。
type Bot struct {
	tb             *tele.Bot
	retriever      Retriever
	stats          StatsReader
	limiter        *UserLimiter
	logger         *logrus.Logger
	requestTimeout time.Duration
	maxFileBytes   int64
}

// New 构造机器人并注册全部处理器。
func New(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, errors.New("bot token is required")
	}
	if opts.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if opts.Stats == nil {
		return nil, errors.New("stats reader is required")
	}
	if opts.Limiter == nil {
		return nil, errors.New("rate limiter is required")
	}
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid request timeout: %v", opts.RequestTimeout)
	}
	if opts.MaxFileBytes <= 0 {
		return nil, fmt.Errorf("invalid max file bytes: %d", opts.MaxFileBytes)
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:     opts.Token,
		Poller:    &tele.LongPoller{Timeout: 10 * time.Second},
		ParseMode: tele.ModeHTML,
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b := &Bot{
		tb:             tb,
		retriever:      opts.Retriever,
		stats:          opts.Stats,
		limiter:        opts.Limiter,
		logger:         opts.Logger,
		requestTimeout: opts.RequestTimeout,
		maxFileBytes:   opts.MaxFileBytes,
	}
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", func(c tele.Context) error {
		return c.Send(replyStart)
	})
	b.tb.Handle("/help", func(c tele.Context) error {
		return c.Send(replyHelp)
	})
	b.tb.Handle("/stats", b.handleStats)
	b.tb.Handle(tele.OnText, b.handleText)
}

// Start 启动长轮询，阻塞到 Stop 被调用。
func (b *Bot) Start() {
	b.tb.Start()
}

// Stop 停止长轮询。
func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) handleStats(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := b.stats.Snapshot(ctx)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"action": "stats_snapshot_failed",
		}).Warnf("读取统计失败: %v", err)
		return c.Send(replyUnexpected)
	}
	return c.Send(formatStats(snap))
}

// handleText 处理任意文本：限流 → 流水线 → 按结果回应。
func (b *Bot) handleText(c tele.Context) error {
	userID := c.Sender().ID

	if !b.limiter.Allow(userID) {
		b.logger.WithFields(logrus.Fields{
			"action":  "rate_limited",
			"user_id": userID,
		}).Info("用户触发限流")
		return c.Send(replyRateLimited)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.requestTimeout)
	defer cancel()

	result, err := b.retriever.Retrieve(ctx, retrieve.Request{UserID: userID, Text: c.Text()})
	if err != nil {
		// ErrNoLink 是日常输入而非故障，安静回复即可。
		if !errors.Is(err, retrieve.ErrNoLink) {
			b.logger.WithFields(logrus.Fields{
				"action":  "retrieve_failed",
				"user_id": userID,
			}).Warnf("请求处理失败: %v", err)
		}
		return c.Send(replyForError(err, b.maxFileBytes))
	}

	video := &tele.Video{File: tele.FromDisk(result.Entry.FilePath)}
	return c.Send(video)
}
