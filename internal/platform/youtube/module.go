// Package youtube 注册 YouTube Shorts 平台的链接形态与下载偏好。
package youtube

import "github.com/clipfetch/clipfetch/internal/platform"

// 仅收录 Shorts 路径与 youtu.be 短链；普通长视频不在产品范围内，
// 超长内容最终会被文件大小上限拦下。
func init() {
	platform.MustRegister(platform.Descriptor{
		Tag:         platform.TagYouTube,
		Description: "YouTube Shorts via shorts paths or youtu.be links",
		LinkPrefixes: []string{
			"https://www.youtube.com/shorts/",
			"https://youtube.com/shorts/",
			"https://m.youtube.com/shorts/",
			"https://youtu.be/",
		},
		Fetch: platform.FetchProfile{
			// Shorts 偏好单文件 mp4，避免合流后产生 mkv。
			FormatHint: "best[ext=mp4]/best",
		},
	})
}
