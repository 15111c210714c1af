package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
)

// mediaExt 是所有缓存条目的统一扩展名，便于 Telegram 端直接发送。
const mediaExt = ".mp4"

// tempPrefix 标记写入中的临时文件，点前缀保证 List 时可直接跳过。
const tempPrefix = ".pending-"

// NewStore 以 basePath 为根目录构建磁盘缓存，整个进程复用一份实例。
func NewStore(basePath string) (Store, error) {
	if basePath == "" {
		return nil, errors.New("storage path required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage path: %w", err)
	}

	return &fileStore{basePath: abs}, nil
}

// fileStore 不维护内存索引，所有元数据即时从文件系统读取，避免索引漂移。
type fileStore struct {
	basePath string
}

func (s *fileStore) Exists(key Key) bool {
	info, err := os.Stat(s.entryPath(key))
	return err == nil && !info.IsDir()
}

func (s *fileStore) Open(key Key) (*ReadResult, error) {
	filePath := s.entryPath(key)

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry:  s.entryFromInfo(key, filePath, info),
		Reader: f,
	}, nil
}

func (s *fileStore) BeginWrite(key Key) (PendingWrite, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("invalid cache key: %s", key)
	}

	// 临时文件与最终路径同目录，保证 rename 不跨文件系统。
	tempFile, err := os.CreateTemp(s.basePath, tempPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tempName := tempFile.Name()
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return &pendingWrite{
		store:     s,
		key:       key,
		tempPath:  tempName,
		finalPath: s.entryPath(key),
	}, nil
}

func (s *fileStore) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	// os.ReadDir 已按文件名排序，淘汰引擎依赖这一稳定顺序做平局裁决。
	result := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		key, ok := keyFromFileName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		result = append(result, s.entryFromInfo(key, filepath.Join(s.basePath, de.Name()), info))
	}
	return result, nil
}

func (s *fileStore) Remove(key Key) error {
	if err := os.Remove(s.entryPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) Touch(key Key) (*Entry, error) {
	filePath := s.entryPath(key)
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := time.Now()
	// 仅更新 atime；mtime 承载 CreatedAt，发布后不得改动。
	if err := os.Chtimes(filePath, now, info.ModTime()); err != nil {
		return nil, err
	}

	entry := s.entryFromInfo(key, filePath, info)
	entry.LastAccessAt = now
	return &entry, nil
}

func (s *fileStore) entryPath(key Key) string {
	return filepath.Join(s.basePath, string(key)+mediaExt)
}

func (s *fileStore) entryFromInfo(key Key, filePath string, info fs.FileInfo) Entry {
	entry := Entry{
		Key:          key,
		FilePath:     filePath,
		SizeBytes:    info.Size(),
		CreatedAt:    info.ModTime(),
		LastAccessAt: info.ModTime(),
	}
	// atime 由 Touch 显式维护；个别平台拿不到时退回 mtime。
	if at := times.Get(info).AccessTime(); !at.IsZero() {
		entry.LastAccessAt = at
	}
	return entry
}

// keyFromFileName 从 <64hex>.mp4 形式的文件名还原键，其他文件一律忽略。
func keyFromFileName(name string) (Key, bool) {
	if !strings.HasSuffix(name, mediaExt) {
		return "", false
	}
	key := Key(strings.TrimSuffix(name, mediaExt))
	if !key.Valid() {
		return "", false
	}
	return key, true
}

// pendingWrite 持有一次未发布写入的临时/最终路径对。
type pendingWrite struct {
	store     *fileStore
	key       Key
	tempPath  string
	finalPath string
	settled   bool
}

func (w *pendingWrite) TempPath() string {
	return w.tempPath
}

func (w *pendingWrite) Commit() (*Entry, error) {
	if w.settled {
		return nil, errors.New("pending write already settled")
	}

	info, err := os.Stat(w.tempPath)
	if err != nil {
		w.settled = true
		return nil, fmt.Errorf("stat temp file: %w", err)
	}

	if err := os.Rename(w.tempPath, w.finalPath); err != nil {
		os.Remove(w.tempPath)
		w.settled = true
		return nil, fmt.Errorf("publish cache entry: %w", err)
	}
	w.settled = true

	// CreatedAt 与 LastAccessAt 在发布瞬间写定为同一时刻。
	now := time.Now()
	if err := os.Chtimes(w.finalPath, now, now); err != nil {
		return nil, fmt.Errorf("stamp cache entry: %w", err)
	}

	return &Entry{
		Key:          w.key,
		FilePath:     w.finalPath,
		SizeBytes:    info.Size(),
		CreatedAt:    now,
		LastAccessAt: now,
	}, nil
}

func (w *pendingWrite) Abort() error {
	if w.settled {
		return nil
	}
	w.settled = true
	if err := os.Remove(w.tempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
