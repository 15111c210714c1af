package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/bot"
	"github.com/clipfetch/clipfetch/internal/cache"
	"github.com/clipfetch/clipfetch/internal/config"
	"github.com/clipfetch/clipfetch/internal/fetch"
	"github.com/clipfetch/clipfetch/internal/logging"
	"github.com/clipfetch/clipfetch/internal/platform"
	"github.com/clipfetch/clipfetch/internal/retrieve"
	"github.com/clipfetch/clipfetch/internal/server"
	"github.com/clipfetch/clipfetch/internal/stats"
	"github.com/clipfetch/clipfetch/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["platforms"] = len(platform.List())
		fields["admin_enabled"] = cfg.AdminEnabled()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动遵循"配置 → 缓存 → 淘汰 → 统计 → 下载编排 → 流水线 → Bot"
	// 顺序，保证所有请求共享同一份缓存与任务表实例。
	store, err := cache.NewStore(cfg.StoragePath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	janitor := cache.NewJanitor(store, logger, cfg.CacheTTL.DurationValue(), cfg.CacheMaxBytes.Int64())

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 进程启动先清一轮：TTL 在前，容量在后。
	janitor.SweepExpired(rootCtx)
	if _, err := janitor.EnsureCapacity(rootCtx, 0); err != nil {
		logger.WithFields(logrus.Fields{
			"action": "evict_capacity",
		}).Warnf("启动容量检查失败: %v", err)
	}
	go janitor.Run(rootCtx, cfg.SweepInterval.DurationValue())

	if err := fetch.InstallTool(rootCtx); err != nil {
		fmt.Fprintf(stdErr, "准备下载工具失败: %v\n", err)
		return 1
	}

	statsStore, err := stats.NewSQLiteStore(cfg.StatsDBPath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化统计库失败: %v\n", err)
		return 1
	}
	defer statsStore.Close()

	coordinator := fetch.NewCoordinator(
		store,
		fetch.NewToolRunner(logger, cfg.MaxFileBytes.Int64()),
		logger,
		cfg.FetchTimeout.DurationValue(),
		cfg.MaxFileBytes.Int64(),
	)

	retriever, err := retrieve.New(retrieve.Options{
		Store:          store,
		Janitor:        janitor,
		Fetcher:        coordinator,
		Sink:           statsStore,
		Logger:         logger,
		MaxFileBytes:   cfg.MaxFileBytes.Int64(),
		FormatOverride: cfg.DownloadFormat,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "构建取回流水线失败: %v\n", err)
		return 1
	}

	tgBot, err := bot.New(bot.Options{
		Token:     cfg.BotToken,
		Retriever: retriever,
		Stats:     statsStore,
		Limiter:   bot.NewUserLimiter(cfg.RatePerMinute, cfg.RateBurst),
		Logger:    logger,
		// 给缓存查找与发布留 30 秒余量。
		RequestTimeout: cfg.FetchTimeout.DurationValue() + 30*time.Second,
		MaxFileBytes:   cfg.MaxFileBytes.Int64(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 Telegram Bot 失败: %v\n", err)
		return 1
	}

	adminApp, err := startAdminServer(cfg, logger, statsStore, store)
	if err != nil {
		fmt.Fprintf(stdErr, "诊断服务启动失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["platforms"] = len(platform.List())
	fields["storage_path"] = cfg.StoragePath
	fields["cache_ttl"] = cfg.CacheTTL.DurationValue().String()
	fields["cache_max_bytes"] = cfg.CacheMaxBytes.Int64()
	fields["admin_enabled"] = cfg.AdminEnabled()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	go func() {
		<-rootCtx.Done()
		logger.WithFields(logrus.Fields{
			"action": "shutdown",
		}).Info("收到退出信号")
		tgBot.Stop()
		if adminApp != nil {
			if err := adminApp.Shutdown(); err != nil {
				logger.WithFields(logrus.Fields{
					"action": "shutdown",
				}).Warnf("诊断服务关闭失败: %v", err)
			}
		}
	}()

	// 长轮询阻塞到 Stop 被调用。
	tgBot.Start()
	return 0
}

// startAdminServer 在配置开启时拉起诊断端口，返回用于优雅关闭的实例。
func startAdminServer(cfg *config.Config, logger *logrus.Logger, statsStore *stats.SQLiteStore, store cache.Store) (*fiber.App, error) {
	if !cfg.AdminEnabled() {
		return nil, nil
	}

	app, err := server.NewApp(server.AppOptions{
		Logger: logger,
		Stats:  statsStore,
		Store:  store,
	})
	if err != nil {
		return nil, err
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"action": "listen",
			"port":   cfg.AdminPort,
		}).Info("诊断服务启动")
		if err := app.Listen(fmt.Sprintf(":%d", cfg.AdminPort)); err != nil {
			logger.WithFields(logrus.Fields{
				"action": "listen",
				"port":   cfg.AdminPort,
			}).Warnf("诊断服务退出: %v", err)
		}
	}()
	return app, nil
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("clipfetch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 CLIPFETCH_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("CLIPFETCH_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}
