package cache

import (
	"errors"
	"io"
	"time"
)

// ErrNotFound 表示目标键在缓存中不存在。
var ErrNotFound = errors.New("cache entry not found")

// Store 负责管理磁盘缓存的读写与枚举。所有实现必须保证：Commit 返回后
// 条目立即对 Exists/Open 可见，且条目一经发布不可变，替换只能走
// Remove + 重新写入。
type Store interface {
	// Exists 以一次 stat 判断条目是否存在，不阻塞在任何网络操作上。
	Exists(key Key) bool

	// Open 返回可流式读取的缓存条目。若不存在则返回 ErrNotFound。
	Open(key Key) (*ReadResult, error)

	// BeginWrite 分配一个与最终路径不同的临时位置，外部下载工具直接
	// 写入 TempPath；之后通过 Commit 原子发布或 Abort 丢弃。
	BeginWrite(key Key) (PendingWrite, error)

	// List 仅通过目录枚举 + stat 构建条目元数据，不读取正文；结果按
	// 文件名排序，保证同一轮淘汰的遍历顺序稳定。
	List() ([]Entry, error)

	// Remove 删除条目。键不存在不算错误，删除是幂等的。
	Remove(key Key) error

	// Touch 在缓存命中时回写 atime（保留 mtime），并返回更新后的条目。
	Touch(key Key) (*Entry, error)
}

// PendingWrite 表示一次未发布的写入。
type PendingWrite interface {
	// TempPath 返回临时文件路径，供外部工具作为输出目标。
	TempPath() string

	// Commit 将临时文件原子重命名到最终路径并写定时间戳。
	Commit() (*Entry, error)

	// Abort 丢弃临时文件；对已 Commit 或已 Abort 的写入再调用无害。
	Abort() error
}

// Entry 表示一个已发布的缓存条目，元数据全部来自文件系统属性。
type Entry struct {
	Key          Key       `json:"key"`
	FilePath     string    `json:"file_path"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessAt time.Time `json:"last_access_at"`
}

// ReadResult 表示一次缓存命中，调用方负责关闭 Reader。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadCloser
}
