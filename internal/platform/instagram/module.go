// Package instagram 注册 Instagram Reels 平台的链接形态与下载偏好。
package instagram

import "github.com/clipfetch/clipfetch/internal/platform"

func init() {
	platform.MustRegister(platform.Descriptor{
		Tag:         platform.TagInstagram,
		Description: "Instagram Reels via reel/reels permalinks",
		LinkPrefixes: []string{
			"https://www.instagram.com/reel/",
			"https://www.instagram.com/reels/",
			"https://instagram.com/reel/",
			"https://instagram.com/reels/",
		},
		Fetch: platform.FetchProfile{
			FormatHint: "mp4",
		},
	})
}
