package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clipfetch/clipfetch/internal/fetch"
	"github.com/clipfetch/clipfetch/internal/retrieve"
	"github.com/clipfetch/clipfetch/internal/stats"
)

// 用户可见文案全部为乌克兰语，每种失败分类对应一条明确的提示，
// 进入流水线的请求绝不允许悄无声息地没有回应。
const (
	replyStart = "Привіт! 👋 Надішли мені посилання на TikTok, Instagram Reels або YouTube Shorts — " +
		"я поверну відео файлом, без водяних знаків і трекінгу."
	replyHelp = "Просто надішли повідомлення з посиланням на відео:\n" +
		"• TikTok (vm.tiktok.com, tiktok.com)\n" +
		"• Instagram Reels (instagram.com/reel/...)\n" +
		"• YouTube Shorts (youtube.com/shorts/..., youtu.be/...)\n\n" +
		"Команди: /start, /help, /stats"
	replyNoLink      = "Не бачу посилання 🤔 Надішли лінк на TikTok, Instagram Reels або YouTube Shorts."
	replyTimeout     = "Завантаження тривало надто довго і було зупинено ⏱ Спробуй ще раз трохи пізніше."
	replyToolError   = "Не вдалося завантажити відео 😕 Перевір, що посилання відкривається, і спробуй ще раз."
	replyUnexpected  = "Щось пішло не так 🛠 Спробуй ще раз за хвилину."
	replyRateLimited = "Забагато запитів поспіль 🙈 Зачекай трохи і надішли посилання ще раз."
)

// replyOversize 把配置的单文件上限渲染进文案，避免提示与实际限制漂移。
func replyOversize(maxFileBytes int64) string {
	return fmt.Sprintf("Відео завелике — я віддаю файли до %s 🐘", formatSize(maxFileBytes))
}

// formatSize 以乌克兰语单位渲染字节数，非整值就降一级单位表达。
func formatSize(bytes int64) string {
	switch {
	case bytes >= 1<<30 && bytes%(1<<30) == 0:
		return fmt.Sprintf("%d ГБ", bytes/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%d МБ", bytes/(1<<20))
	default:
		return fmt.Sprintf("%d КБ", bytes/(1<<10))
	}
}

// replyForError 把流水线错误映射为用户提示。
func replyForError(err error, maxFileBytes int64) string {
	if errors.Is(err, retrieve.ErrNoLink) {
		return replyNoLink
	}
	switch fetch.KindOf(err) {
	case fetch.KindTimeout:
		return replyTimeout
	case fetch.KindToolError:
		return replyToolError
	case fetch.KindOversize:
		return replyOversize(maxFileBytes)
	default:
		return replyUnexpected
	}
}

// formatStats 渲染 /stats 命令的 HTML 文本。
func formatStats(snap *stats.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Статистика</b>\n")
	fmt.Fprintf(&b, "Запитів: %d\n", snap.Requests)
	fmt.Fprintf(&b, "З кешу: %d\n", snap.Hits)
	fmt.Fprintf(&b, "Завантажено: %d\n", snap.Successes)
	fmt.Fprintf(&b, "Помилок: %d\n", snap.Failures)

	if len(snap.ByPlatform) > 0 {
		fmt.Fprintf(&b, "\n<b>Платформи</b>\n")
		for _, tag := range []string{"tiktok", "instagram", "youtube", "other"} {
			if count, ok := snap.ByPlatform[tag]; ok {
				fmt.Fprintf(&b, "%s: %d\n", tag, count)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
