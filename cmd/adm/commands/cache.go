package commands

import (
	"context"
	"database/sql"

	"certquiz/internal/observability"
	"certquiz/internal/services"
	contextutils "certquiz/internal/utils"

	"github.com/spf13/cobra"
)

// CacheCommands returns the AI content cache maintenance commands
func CacheCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "AI content cache maintenance commands",
		Long: `AI content cache maintenance commands.

Available commands:
  clear     - Delete cached AI content
  stats     - Show cache row counts per language and kind`,
	}

	cacheCmd.AddCommand(clearCmd(logger, db))
	cacheCmd.AddCommand(cacheStatsCmd(logger, db))

	return cacheCmd
}

func clearCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var questionID string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached AI content",
		Long: `Delete cached AI content.

Without flags the entire cache is cleared; the next content request for any
question regenerates it. Use --question to clear a single question's rows,
for example after fixing its correct answer.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			cache := services.NewContentCacheRepository(db, logger)
			deleted, err := cache.Clear(ctx, questionID)
			if err != nil {
				return contextutils.WrapError(err, "failed to clear content cache")
			}

			logger.Info(ctx, "Content cache cleared", map[string]interface{}{
				"question_id": questionID,
				"deleted":     deleted,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&questionID, "question", "", "Clear only this question's cached content")

	return cmd
}

func cacheStatsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache row counts per language and kind",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			rows, err := db.QueryContext(ctx, `
				SELECT language, type, COUNT(*)
				FROM ai_cache
				GROUP BY language, type
				ORDER BY language, type`)
			if err != nil {
				return contextutils.WrapError(err, "failed to query cache stats")
			}
			defer func() { _ = rows.Close() }()

			total := 0
			for rows.Next() {
				var language, kind string
				var count int
				if err := rows.Scan(&language, &kind, &count); err != nil {
					return contextutils.WrapError(err, "failed to scan cache stats row")
				}
				total += count
				logger.Info(ctx, "Cache bucket", map[string]interface{}{
					"language": language,
					"type":     kind,
					"rows":     count,
				})
			}
			if err := rows.Err(); err != nil {
				return contextutils.WrapError(err, "failed to read cache stats")
			}

			logger.Info(ctx, "Cache total", map[string]interface{}{"rows": total})
			return nil
		},
	}
}
