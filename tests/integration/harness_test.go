package integration

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/cache"
	"github.com/clipfetch/clipfetch/internal/fetch"
	"github.com/clipfetch/clipfetch/internal/platform"
	"github.com/clipfetch/clipfetch/internal/retrieve"
	"github.com/clipfetch/clipfetch/internal/stats"

	_ "github.com/clipfetch/clipfetch/internal/platform/instagram"
	_ "github.com/clipfetch/clipfetch/internal/platform/tiktok"
	_ "github.com/clipfetch/clipfetch/internal/platform/youtube"
)

// harness 用真实的缓存、淘汰引擎、编排器与 SQLite 统计库组装整条
// 流水线，只把外部下载工具换成可控的假 Runner。
type harness struct {
	store     cache.Store
	janitor   *cache.Janitor
	stats     *stats.SQLiteStore
	retriever *retrieve.Retriever
	launches  atomic.Int32
}

type harnessConfig struct {
	ttl          time.Duration
	maxBytes     int64
	fetchTimeout time.Duration
	maxFileBytes int64
	payload      []byte
	gate         chan struct{}
	runnerErr    bool
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()

	if cfg.ttl == 0 {
		cfg.ttl = time.Hour
	}
	if cfg.maxBytes == 0 {
		cfg.maxBytes = 1 << 30
	}
	if cfg.fetchTimeout == 0 {
		cfg.fetchTimeout = 5 * time.Second
	}
	if cfg.maxFileBytes == 0 {
		cfg.maxFileBytes = 50 << 20
	}
	if cfg.payload == nil {
		cfg.payload = []byte("integration clip")
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}
	janitor := cache.NewJanitor(store, logger, cfg.ttl, cfg.maxBytes)

	statsStore, err := stats.NewSQLiteStore(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("打开统计库失败: %v", err)
	}
	t.Cleanup(func() { statsStore.Close() })

	h := &harness{store: store, janitor: janitor, stats: statsStore}

	runner := fetch.RunnerFunc(func(ctx context.Context, url, destPath string, profile platform.FetchProfile) error {
		h.launches.Add(1)
		if cfg.runnerErr {
			return os.ErrInvalid
		}
		if cfg.gate != nil {
			select {
			case <-cfg.gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return os.WriteFile(destPath, cfg.payload, 0o644)
	})

	coordinator := fetch.NewCoordinator(store, runner, logger, cfg.fetchTimeout, cfg.maxFileBytes)

	retriever, err := retrieve.New(retrieve.Options{
		Store:        store,
		Janitor:      janitor,
		Fetcher:      coordinator,
		Sink:         statsStore,
		Logger:       logger,
		MaxFileBytes: cfg.maxFileBytes,
	})
	if err != nil {
		t.Fatalf("构建流水线失败: %v", err)
	}
	h.retriever = retriever
	return h
}

// seedEntry 直接向缓存写入一个指定大小、指定访问时间的条目。
func seedEntry(t *testing.T, store cache.Store, url string, size int, accessedAt time.Time) *cache.Entry {
	t.Helper()

	key := cache.DeriveKey(url)
	pw, err := store.BeginWrite(key)
	if err != nil {
		t.Fatalf("begin write 失败: %v", err)
	}
	if err := os.WriteFile(pw.TempPath(), make([]byte, size), 0o644); err != nil {
		t.Fatalf("写临时文件失败: %v", err)
	}
	entry, err := pw.Commit()
	if err != nil {
		t.Fatalf("commit 失败: %v", err)
	}
	if err := os.Chtimes(entry.FilePath, accessedAt, accessedAt); err != nil {
		t.Fatalf("回拨时间失败: %v", err)
	}
	return entry
}

func totalCacheBytes(t *testing.T, store cache.Store) int64 {
	t.Helper()
	entries, err := store.List()
	if err != nil {
		t.Fatalf("list 失败: %v", err)
	}
	var total int64
	for _, entry := range entries {
		total += entry.SizeBytes
	}
	return total
}
