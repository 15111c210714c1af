// Package stats 汇总每个逻辑请求的结果事件。流水线只负责在固定的
// 发射点上报事件，持久化与查询由注入的 Sink 实现承担，便于测试替换。
package stats

import (
	"context"
	"time"

	"github.com/clipfetch/clipfetch/internal/platform"
)

// Outcome 是单个请求的终态，与流水线的分支一一对应。
type Outcome string

const (
	OutcomeHit        Outcome = "hit"
	OutcomeSuccess    Outcome = "success"
	OutcomeNoLink     Outcome = "no_link"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeToolError  Outcome = "tool_error"
	OutcomeOversize   Outcome = "oversize"
	OutcomeUnexpected Outcome = "unexpected"
)

// Event 描述一个已完成请求：每个逻辑请求恰好发射一条，等待者也各自计数。
type Event struct {
	RequestID string
	UserID    int64
	Platform  platform.Tag
	Outcome   Outcome
	Duration  time.Duration
}

// Sink 接收结果事件。实现必须容忍并发调用。
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// SinkFunc 方便测试中用函数充当 Sink。
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Record(ctx context.Context, event Event) error {
	return f(ctx, event)
}
