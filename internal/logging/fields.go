package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供单个取回请求的公共字段，供流水线与机器人端复用。
func RequestFields(requestID string, userID int64, platform, outcome string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"user_id":    userID,
		"platform":   platform,
		"outcome":    outcome,
		"cache_hit":  cacheHit,
	}
}
