package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key 是规范化 URL 的 SHA-256 摘要（64 位小写十六进制）。
// 相同 URL 必然得到相同键；不同 URL 碰撞概率可忽略，因此无需碰撞处理。
type Key string

// KeyLength 是十六进制键的固定长度。
const KeyLength = 64

// DeriveKey 对 URL 字节串计算摘要。纯函数，除摘要本身外无分配。
func DeriveKey(url string) Key {
	sum := sha256.Sum256([]byte(url))
	return Key(hex.EncodeToString(sum[:]))
}

// Valid 校验键是否为合法的 64 位十六进制串，用于过滤目录中的杂项文件。
func (k Key) Valid() bool {
	if len(k) != KeyLength {
		return false
	}
	for _, c := range k {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
