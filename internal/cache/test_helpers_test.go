package cache

import (
	"io"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建缓存失败: %v", err)
	}
	return store
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// commitEntry 模拟外部工具写入临时文件后发布的完整流程。
func commitEntry(t *testing.T, store Store, url string, payload []byte) *Entry {
	t.Helper()

	key := DeriveKey(url)
	pw, err := store.BeginWrite(key)
	if err != nil {
		t.Fatalf("begin write 失败: %v", err)
	}
	if err := os.WriteFile(pw.TempPath(), payload, 0o644); err != nil {
		t.Fatalf("写入临时文件失败: %v", err)
	}
	entry, err := pw.Commit()
	if err != nil {
		t.Fatalf("commit 失败: %v", err)
	}
	return entry
}

// backdate 直接改写条目文件的 atime/mtime，模拟历史写入与访问。
func backdate(t *testing.T, entry *Entry, access, created time.Time) {
	t.Helper()
	if err := os.Chtimes(entry.FilePath, access, created); err != nil {
		t.Fatalf("回拨时间失败: %v", err)
	}
}
