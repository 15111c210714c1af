// Package server 暴露可选的诊断 HTTP 端口（/-/ 前缀），供运维查询
// 平台注册表、统计读数与缓存占用。关闭 AdminPort 时整个包不参与运行。
package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/cache"
	"github.com/clipfetch/clipfetch/internal/stats"
)

// StatsReader 提供诊断端所需的聚合读数。
type StatsReader interface {
	Snapshot(ctx context.Context) (*stats.Snapshot, error)
}

// AppOptions 控制诊断应用的依赖注入。
type AppOptions struct {
	Logger *logrus.Logger
	Stats  StatsReader
	Store  cache.Store
}

const contextKeyRequestID = "_clipfetch_request_id"

// NewApp 构建带请求 ID 与 panic 恢复的 Fiber 应用，并注册诊断路由。
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Stats == nil {
		return nil, errors.New("stats reader is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	})

	registerDiagnosticsRoutes(app, opts)
	return app, nil
}

// RequestID 返回中间件生成的请求标识。
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
