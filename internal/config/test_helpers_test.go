package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeConfigFile 把 TOML 内容写进临时目录并返回路径。
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写配置文件失败: %v", err)
	}
	return path
}

const minimalConfig = `
BotToken = "123456:test-token"
StoragePath = "./storage"
`
