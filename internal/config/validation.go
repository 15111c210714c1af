package config

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if c.BotToken == "" {
		return newFieldError("BotToken", "不能为空（可通过环境变量 BOT_TOKEN 提供）")
	}
	if c.StoragePath == "" {
		return newFieldError("StoragePath", "不能为空")
	}
	if c.CacheTTL.DurationValue() <= 0 {
		return newFieldError("CacheTTL", "必须大于 0")
	}
	if c.CacheMaxBytes <= 0 {
		return newFieldError("CacheMaxBytes", "必须大于 0")
	}
	if c.SweepInterval.DurationValue() <= 0 {
		return newFieldError("SweepInterval", "必须大于 0")
	}
	if c.FetchTimeout.DurationValue() <= 0 {
		return newFieldError("FetchTimeout", "必须大于 0")
	}
	if c.MaxFileBytes <= 0 {
		return newFieldError("MaxFileBytes", "必须大于 0")
	}
	if c.MaxFileBytes > c.CacheMaxBytes {
		return newFieldError("MaxFileBytes", "不能超过 CacheMaxBytes")
	}
	if c.StatsDBPath == "" {
		return newFieldError("StatsDBPath", "不能为空")
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		return newFieldError("AdminPort", "必须在 0-65535（0 表示关闭）")
	}
	if c.RatePerMinute <= 0 {
		return newFieldError("RatePerMinute", "必须大于 0")
	}
	if c.RateBurst <= 0 {
		return newFieldError("RateBurst", "必须大于 0")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return newFieldError("LogLevel", "无法识别的日志级别")
	}

	return nil
}
