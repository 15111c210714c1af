package platform

import (
	"strings"
	"unicode"
)

// Classify 在任意用户文本中查找第一个受支持的视频链接。
//
// 匹配规则：对所有已注册平台的链接前缀做最左出现位置扫描，取整段文本中
// 出现最早的前缀；链接从前缀起点延伸到第一个空白字符或文本结尾。
// 未命中任何前缀时返回 ok=false —— 这是正常输入，不是错误。
func Classify(text string) (url string, tag Tag, ok bool) {
	bestIdx := -1
	var bestTag Tag

	for _, desc := range List() {
		for _, prefix := range desc.LinkPrefixes {
			idx := strings.Index(text, prefix)
			if idx < 0 {
				continue
			}
			if bestIdx < 0 || idx < bestIdx {
				bestIdx = idx
				bestTag = desc.Tag
			}
		}
	}

	if bestIdx < 0 {
		return "", "", false
	}

	rest := text[bestIdx:]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		end = len(rest)
	}
	return rest[:end], bestTag, true
}
