package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestSweepExpiredRemovesOnlyOldEntries(t *testing.T) {
	store := newTestStore(t)
	janitor := NewJanitor(store, silentLogger(), 24*time.Hour, 1<<30)

	fresh := commitEntry(t, store, "https://youtu.be/fresh", []byte("fresh"))
	stale := commitEntry(t, store, "https://youtu.be/stale", []byte("stale"))
	old := time.Now().Add(-48 * time.Hour)
	backdate(t, stale, old, old)

	removed := janitor.SweepExpired(context.Background())
	if removed != 1 {
		t.Fatalf("应清理 1 个过期条目，得到 %d", removed)
	}
	if store.Exists(stale.Key) {
		t.Fatalf("过期条目应被删除")
	}
	if !store.Exists(fresh.Key) {
		t.Fatalf("未过期条目不应被删除")
	}
}

func TestSweepExpiredKeepsEntryAtExactTTL(t *testing.T) {
	store := newTestStore(t)
	janitor := NewJanitor(store, silentLogger(), 24*time.Hour, 1<<30)

	// 固定时钟，秒级截断避开文件系统时间戳精度差异。
	now := time.Now().Truncate(time.Second)
	janitor.now = func() time.Time { return now }

	atLimit := commitEntry(t, store, "https://youtu.be/at-limit", []byte("a"))
	backdate(t, atLimit, now.Add(-24*time.Hour), now.Add(-24*time.Hour))
	beyond := commitEntry(t, store, "https://youtu.be/beyond", []byte("b"))
	backdate(t, beyond, now.Add(-24*time.Hour-time.Second), now.Add(-24*time.Hour-time.Second))

	removed := janitor.SweepExpired(context.Background())
	if removed != 1 {
		t.Fatalf("应只清理 1 个条目，得到 %d", removed)
	}
	if !store.Exists(atLimit.Key) {
		t.Fatalf("年龄恰好等于 TTL 的条目应保留")
	}
	if store.Exists(beyond.Key) {
		t.Fatalf("年龄超过 TTL 的条目应被删除")
	}
}

func TestEnsureCapacityEvictsLeastRecentlyAccessed(t *testing.T) {
	store := newTestStore(t)
	// 每个条目 100 字节，上限 250：写满 4 个后必须淘汰到 ≤250。
	janitor := NewJanitor(store, silentLogger(), time.Hour, 250)

	now := time.Now()
	var entries []*Entry
	for i := 0; i < 4; i++ {
		entry := commitEntry(t, store, fmt.Sprintf("https://youtu.be/cap%d", i), make([]byte, 100))
		// 下标越小访问越早。
		access := now.Add(time.Duration(i-10) * time.Minute)
		backdate(t, entry, access, access)
		entries = append(entries, entry)
	}

	removed, err := janitor.EnsureCapacity(context.Background(), 0)
	if err != nil {
		t.Fatalf("ensure capacity 失败: %v", err)
	}
	if removed != 2 {
		t.Fatalf("应淘汰 2 个条目，得到 %d", removed)
	}

	// 最久未访问的两个被淘汰，较新的两个存活。
	for i, entry := range entries {
		exists := store.Exists(entry.Key)
		if i < 2 && exists {
			t.Fatalf("条目 %d 更久未访问，应被淘汰", i)
		}
		if i >= 2 && !exists {
			t.Fatalf("条目 %d 访问较新，不应被淘汰", i)
		}
	}
}

func TestEnsureCapacityIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	janitor := NewJanitor(store, silentLogger(), time.Hour, 150)

	for i := 0; i < 3; i++ {
		entry := commitEntry(t, store, fmt.Sprintf("https://youtu.be/idem%d", i), make([]byte, 100))
		access := time.Now().Add(time.Duration(i-10) * time.Minute)
		backdate(t, entry, access, access)
	}

	if _, err := janitor.EnsureCapacity(context.Background(), 0); err != nil {
		t.Fatalf("第一轮失败: %v", err)
	}
	removed, err := janitor.EnsureCapacity(context.Background(), 0)
	if err != nil {
		t.Fatalf("第二轮失败: %v", err)
	}
	if removed != 0 {
		t.Fatalf("无新写入时第二轮不应再淘汰，得到 %d", removed)
	}
}

func TestEnsureCapacityReservesIncomingBytes(t *testing.T) {
	store := newTestStore(t)
	janitor := NewJanitor(store, silentLogger(), time.Hour, 250)

	for i := 0; i < 2; i++ {
		entry := commitEntry(t, store, fmt.Sprintf("https://youtu.be/in%d", i), make([]byte, 100))
		access := time.Now().Add(time.Duration(i-10) * time.Minute)
		backdate(t, entry, access, access)
	}

	// 已用 200，上限 250：为 100 字节的新写入腾位要淘汰最旧的一个。
	removed, err := janitor.EnsureCapacity(context.Background(), 100)
	if err != nil {
		t.Fatalf("ensure capacity 失败: %v", err)
	}
	if removed != 1 {
		t.Fatalf("应为新写入淘汰 1 个条目，得到 %d", removed)
	}
}

// failingRemoveStore 模拟个别条目删除失败（例如被并发清扫抢先删除）。
type failingRemoveStore struct {
	Store
	failKey Key
}

func (s *failingRemoveStore) Remove(key Key) error {
	if key == s.failKey {
		return fmt.Errorf("remove %s: simulated io failure", key)
	}
	return s.Store.Remove(key)
}

func TestEvictionSkipsFailedRemovals(t *testing.T) {
	inner := newTestStore(t)

	oldest := commitEntry(t, inner, "https://youtu.be/fail", make([]byte, 100))
	second := commitEntry(t, inner, "https://youtu.be/ok", make([]byte, 100))
	now := time.Now()
	backdate(t, oldest, now.Add(-20*time.Minute), now.Add(-20*time.Minute))
	backdate(t, second, now.Add(-10*time.Minute), now.Add(-10*time.Minute))

	store := &failingRemoveStore{Store: inner, failKey: oldest.Key}
	janitor := NewJanitor(store, silentLogger(), time.Hour, 100)

	removed, err := janitor.EnsureCapacity(context.Background(), 0)
	if err != nil {
		t.Fatalf("删除失败不应中止整轮淘汰: %v", err)
	}
	// 最旧条目删不掉被跳过，改为淘汰下一个。
	if removed != 1 {
		t.Fatalf("应淘汰 1 个条目，得到 %d", removed)
	}
	if inner.Exists(second.Key) {
		t.Fatalf("删除失败后应继续淘汰下一个条目")
	}
}
