package commands

import (
	"context"
	"database/sql"

	"certquiz/internal/observability"
	"certquiz/internal/services"
	contextutils "certquiz/internal/utils"

	"github.com/spf13/cobra"
)

// ProgressCommands returns the remote progress inspection commands
func ProgressCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "Remote progress inspection commands",
		Long: `Remote progress inspection commands.

Available commands:
  show      - Show one user's progress pointer
  reset     - Delete one user's progress pointer`,
	}

	progressCmd.AddCommand(showProgressCmd(logger, db))
	progressCmd.AddCommand(resetProgressCmd(logger, db))

	return progressCmd
}

func showProgressCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show one user's progress pointer",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			userID := args[0]

			repo := services.NewProgressRepository(db, logger)
			progress, err := repo.Get(ctx, userID)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to load progress for %s", userID)
			}
			if progress == nil {
				logger.Info(ctx, "No progress recorded", map[string]interface{}{"user_id": userID})
				return nil
			}

			logger.Info(ctx, "User progress", map[string]interface{}{
				"user_id":             progress.UserID,
				"last_question_index": progress.LastQuestionIndex,
				"updated_at":          progress.UpdatedAt,
			})
			return nil
		},
	}
}

func resetProgressCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Delete one user's progress pointer",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()
			userID := args[0]

			result, err := db.ExecContext(ctx, "DELETE FROM user_progress WHERE user_id = $1", userID)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to reset progress for %s", userID)
			}
			deleted, _ := result.RowsAffected()

			logger.Info(ctx, "Progress reset", map[string]interface{}{
				"user_id": userID,
				"deleted": deleted,
			})
			return nil
		},
	}
}
