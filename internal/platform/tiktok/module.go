// Package tiktok 注册 TikTok 平台的链接形态与下载偏好。
package tiktok

import "github.com/clipfetch/clipfetch/internal/platform"

// TikTok 短链（vm/vt）与完整视频页均指向同一下载流程，yt-dlp 自行跟随跳转。
func init() {
	platform.MustRegister(platform.Descriptor{
		Tag:         platform.TagTikTok,
		Description: "TikTok videos via share links or canonical video pages",
		LinkPrefixes: []string{
			"https://vm.tiktok.com/",
			"https://vt.tiktok.com/",
			"https://www.tiktok.com/",
			"https://m.tiktok.com/",
		},
		Fetch: platform.FetchProfile{
			FormatHint: "mp4",
		},
	})
}
