package config

// 平台模块通过 init() 自注册；在配置层统一激活，保证任何入口
// （CLI、测试）加载配置时分类器已经就绪。
import (
	_ "github.com/clipfetch/clipfetch/internal/platform/instagram"
	_ "github.com/clipfetch/clipfetch/internal/platform/tiktok"
	_ "github.com/clipfetch/clipfetch/internal/platform/youtube"
)
