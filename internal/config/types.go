package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// ByteSize 兼容 "50MB"、"1GB" 等带单位写法与纯字节整数。
type ByteSize int64

// UnmarshalText 解析带单位的容量字符串，单位不区分大小写。
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := parseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Int64 返回字节数。
func (b ByteSize) Int64() int64 {
	return int64(b)
}

var byteUnits = []struct {
	suffix string
	factor int64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

func parseByteSize(raw string) (ByteSize, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}

	upper := strings.ToUpper(trimmed)
	for _, unit := range byteUnits {
		if !strings.HasSuffix(upper, unit.suffix) {
			continue
		}
		numPart := strings.TrimSpace(strings.TrimSuffix(upper, unit.suffix))
		if numPart == "" {
			break
		}
		value, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size value: %s", raw)
		}
		return ByteSize(value * float64(unit.factor)), nil
	}

	if value, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return ByteSize(value), nil
	}
	return 0, fmt.Errorf("invalid byte size value: %s", raw)
}

// Config 是 TOML 文件映射的整体结构，所有参数均由外部提供。
type Config struct {
	BotToken string `mapstructure:"BotToken"`

	StoragePath   string   `mapstructure:"StoragePath"`
	CacheTTL      Duration `mapstructure:"CacheTTL"`
	CacheMaxBytes ByteSize `mapstructure:"CacheMaxBytes"`
	SweepInterval Duration `mapstructure:"SweepInterval"`

	FetchTimeout   Duration `mapstructure:"FetchTimeout"`
	MaxFileBytes   ByteSize `mapstructure:"MaxFileBytes"`
	DownloadFormat string   `mapstructure:"DownloadFormat"`

	StatsDBPath string `mapstructure:"StatsDBPath"`
	AdminPort   int    `mapstructure:"AdminPort"`

	RatePerMinute int `mapstructure:"RatePerMinute"`
	RateBurst     int `mapstructure:"RateBurst"`

	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// AdminEnabled 表示是否开启诊断 HTTP 端口。
func (c *Config) AdminEnabled() bool {
	return c.AdminPort > 0
}
