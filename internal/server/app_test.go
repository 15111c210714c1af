package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/cache"
	"github.com/clipfetch/clipfetch/internal/stats"

	_ "github.com/clipfetch/clipfetch/internal/platform/tiktok"
)

type fakeStats struct {
	snap *stats.Snapshot
	err  error
}

func (f *fakeStats) Snapshot(ctx context.Context) (*stats.Snapshot, error) {
	return f.snap, f.err
}

func newTestApp(t *testing.T) (*fiber.App, cache.Store) {
	t.Helper()

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := NewApp(AppOptions{
		Logger: logger,
		Stats:  &fakeStats{snap: &stats.Snapshot{Requests: 3, Hits: 1}},
		Store:  store,
	})
	if err != nil {
		t.Fatalf("构建应用失败: %v", err)
	}
	return app, store
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/health", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"status":"ok"`)) {
		t.Fatalf("health payload mismatch: %s", body)
	}
}

func TestPlatformsEndpointListsRegistry(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/platforms", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	var payload struct {
		Platforms []platformPayload `json:"platforms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(payload.Platforms) == 0 {
		t.Fatalf("应至少列出一个平台")
	}
	found := false
	for _, p := range payload.Platforms {
		if p.Tag == "tiktok" && len(p.LinkPrefixes) > 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("tiktok 平台缺失: %+v", payload.Platforms)
	}
}

func TestStatsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/stats", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	var snap stats.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if snap.Requests != 3 || snap.Hits != 1 {
		t.Fatalf("统计读数错误: %+v", snap)
	}
}

func TestCacheEndpointSummarizesEntries(t *testing.T) {
	app, store := newTestApp(t)

	key := cache.DeriveKey("https://vm.tiktok.com/diag")
	pw, err := store.BeginWrite(key)
	if err != nil {
		t.Fatalf("begin write 失败: %v", err)
	}
	if err := os.WriteFile(pw.TempPath(), []byte("clip-data"), 0o644); err != nil {
		t.Fatalf("写临时文件失败: %v", err)
	}
	if _, err := pw.Commit(); err != nil {
		t.Fatalf("commit 失败: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/-/cache", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	var payload struct {
		Entries    int                 `json:"entries"`
		TotalBytes int64               `json:"total_bytes"`
		Items      []cacheEntryPayload `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if payload.Entries != 1 || payload.TotalBytes != 9 {
		t.Fatalf("缓存摘要错误: %+v", payload)
	}
	if payload.Items[0].Key != string(key) {
		t.Fatalf("条目键不符: %+v", payload.Items[0])
	}
}
