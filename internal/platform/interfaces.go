package platform

// Tag 描述链接所属的平台，仅用于分类与统计维度，不参与缓存键推导。
type Tag string

const (
	TagTikTok    Tag = "tiktok"
	TagInstagram Tag = "instagram"
	TagYouTube   Tag = "youtube"

	// TagOther 是统计侧的兜底标签；分类器本身只会返回已注册平台。
	TagOther Tag = "other"
)

// FetchProfile 描述平台下载时传递给外部工具的偏好参数。
type FetchProfile struct {
	// FormatHint 作为 yt-dlp 的 -f 参数；为空时使用工具默认值。
	FormatHint string
}

// Descriptor 记录一个平台模块的静态信息，供分类器与诊断端使用。
type Descriptor struct {
	Tag         Tag
	Description string

	// LinkPrefixes 是该平台支持的链接前缀列表，分类时按最左匹配优先。
	LinkPrefixes []string

	Fetch FetchProfile
}
