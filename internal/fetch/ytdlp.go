package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/platform"
)

// InstallTool 确保 yt-dlp 二进制可用，必要时自动下载到用户缓存目录。
// 进程启动时调用一次。
func InstallTool(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// NewToolRunner 构造基于 yt-dlp 子进程的生产 Runner。maxFileBytes 会以
// --max-filesize 下发给工具做预检；发布前的体积核验仍以本地 stat 为准。
func NewToolRunner(logger *logrus.Logger, maxFileBytes int64) Runner {
	return &toolRunner{logger: logger, maxFileBytes: maxFileBytes}
}

type toolRunner struct {
	logger       *logrus.Logger
	maxFileBytes int64
}

// Run 启动一次 yt-dlp 调用：输出被强制写到 destPath，退出状态与捕获的
// stderr 是仅有的结果信号。一次 Run 至多一次进程启动，不做内部重试。
func (r *toolRunner) Run(ctx context.Context, url, destPath string, profile platform.FetchProfile) error {
	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		Output(destPath)
	if profile.FormatHint != "" {
		dl = dl.Format(profile.FormatHint)
	}
	if r.maxFileBytes > 0 {
		// 工具侧上限只能拦截事先知道体积的下载，属于省时的预检。
		dl = dl.MaxFileSize(sizeLimitArg(r.maxFileBytes))
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		if result != nil && result.Stderr != "" {
			return fmt.Errorf("yt-dlp failed: %w (%s)", err, stderrTail(result.Stderr))
		}
		return fmt.Errorf("yt-dlp failed: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"action":    "tool_run",
		"exit_code": result.ExitCode,
	}).Debug("yt-dlp 调用完成")
	return nil
}

// sizeLimitArg 把字节数渲染为 yt-dlp 可解析的体积参数。用精确字节数
// 而非 "50M" 这类单位写法，避免换算取整放宽上限。
func sizeLimitArg(maxBytes int64) string {
	return strconv.FormatInt(maxBytes, 10)
}

// stderrTail 截取诊断输出的末尾，避免把整段进度条刷进错误信息。
func stderrTail(stderr string) string {
	const limit = 400
	trimmed := strings.TrimSpace(stderr)
	if len(trimmed) <= limit {
		return trimmed
	}
	return "..." + trimmed[len(trimmed)-limit:]
}
