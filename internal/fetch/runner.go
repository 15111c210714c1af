package fetch

import (
	"context"

	"github.com/clipfetch/clipfetch/internal/platform"
)

// Runner 把外部下载工具抽象成 fetch(url, destPath)：要么在 destPath
// 产出完整媒体文件，要么返回错误。超时由调用方通过 ctx 约束。
type Runner interface {
	Run(ctx context.Context, url, destPath string, profile platform.FetchProfile) error
}

// RunnerFunc 方便测试中用函数充当 Runner。
type RunnerFunc func(ctx context.Context, url, destPath string, profile platform.FetchProfile) error

func (f RunnerFunc) Run(ctx context.Context, url, destPath string, profile platform.FetchProfile) error {
	return f(ctx, url, destPath, profile)
}
