package main

import (
	"strings"
	"testing"
)

const validMainConfig = `
BotToken = "123456:test-token"
StoragePath = "./storage"
`

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("CLIPFETCH_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsDefaultPath(t *testing.T) {
	t.Setenv("CLIPFETCH_CONFIG", "")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认路径应为 config.toml，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsRejectsUnknown(t *testing.T) {
	if _, err := parseCLIFlags([]string{"--bogus"}); err == nil {
		t.Fatalf("未知参数应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: writeConfigFile(t, validMainConfig), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	useBufferWriters(t)
	code := run(cliOptions{configPath: writeConfigFile(t, `StoragePath = "./storage"`), checkOnly: true})
	if code == 0 {
		t.Fatalf("缺失 token 的配置应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "BotToken") {
		t.Fatalf("错误输出应指向 BotToken 字段: %s", stdErrBuffer().String())
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: "/nonexistent/config.toml", checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "clipfetch") {
		t.Fatalf("版本输出缺少程序名: %s", stdOutBuffer().String())
	}
}
