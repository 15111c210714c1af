// Package cache 提供以 URL 摘要为键的磁盘视频缓存。
//
// 磁盘布局为单层目录：
//
//	<StoragePath>/<key>.mp4        # 已发布的缓存条目
//	<StoragePath>/.pending-*       # 写入中的临时文件，列举时忽略
//
// 文件系统是元数据的唯一事实来源：大小取自文件长度，CreatedAt 取自
// mtime（发布时写定，此后不变），LastAccessAt 取自 atime（命中时通过
// Touch 显式回写，因此不依赖挂载项的 atime 行为）。发布依赖 rename 的
// 原子性，读取方不可能在最终路径下看到半成品文件。
package cache
