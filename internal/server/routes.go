package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/clipfetch/clipfetch/internal/platform"
	"github.com/clipfetch/clipfetch/internal/version"
)

func registerDiagnosticsRoutes(app *fiber.App, opts AppOptions) {
	app.Get("/-/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Full(),
		})
	})

	app.Get("/-/platforms", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"platforms": encodePlatforms(platform.List()),
		})
	})

	app.Get("/-/stats", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		snap, err := opts.Stats.Snapshot(ctx)
		if err != nil {
			opts.Logger.WithFields(logrus.Fields{
				"action":     "stats_snapshot_failed",
				"request_id": RequestID(c),
			}).Warnf("读取统计失败: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_unavailable"})
		}
		return c.JSON(snap)
	})

	app.Get("/-/cache", func(c fiber.Ctx) error {
		entries, err := opts.Store.List()
		if err != nil {
			opts.Logger.WithFields(logrus.Fields{
				"action":     "cache_list_failed",
				"request_id": RequestID(c),
			}).Warnf("枚举缓存失败: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cache_unavailable"})
		}

		var totalBytes int64
		items := make([]cacheEntryPayload, 0, len(entries))
		for _, entry := range entries {
			totalBytes += entry.SizeBytes
			items = append(items, cacheEntryPayload{
				Key:          string(entry.Key),
				SizeBytes:    entry.SizeBytes,
				CreatedAt:    entry.CreatedAt.UTC().Format(time.RFC3339),
				LastAccessAt: entry.LastAccessAt.UTC().Format(time.RFC3339),
			})
		}
		return c.JSON(fiber.Map{
			"entries":     len(items),
			"total_bytes": totalBytes,
			"items":       items,
		})
	})
}

type platformPayload struct {
	Tag          string   `json:"tag"`
	Description  string   `json:"description"`
	LinkPrefixes []string `json:"link_prefixes"`
	FormatHint   string   `json:"format_hint,omitempty"`
}

type cacheEntryPayload struct {
	Key          string `json:"key"`
	SizeBytes    int64  `json:"size_bytes"`
	CreatedAt    string `json:"created_at"`
	LastAccessAt string `json:"last_access_at"`
}

func encodePlatforms(descs []platform.Descriptor) []platformPayload {
	if len(descs) == 0 {
		return nil
	}
	result := make([]platformPayload, 0, len(descs))
	for _, desc := range descs {
		result = append(result, platformPayload{
			Tag:          string(desc.Tag),
			Description:  desc.Description,
			LinkPrefixes: append([]string(nil), desc.LinkPrefixes...),
			FormatHint:   desc.Fetch.FormatHint,
		})
	}
	return result
}
