// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"strings"

	"certquiz/internal/observability"
	contextutils "certquiz/internal/utils"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
)

// questionSchema validates one imported question object. Imports are the only
// write path into the questions table, so malformed files fail before any row
// is touched.
const questionSchema = `{
  "type": "object",
  "required": ["id", "question", "options", "correct_answer"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "topic": {"type": "string"},
    "question": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 2
    },
    "correct_answer": {"type": "string", "minLength": 1},
    "is_multiselect": {"type": "boolean"},
    "discussion_link": {"type": "string"}
  },
  "additionalProperties": false
}`

// importedQuestion is the on-disk import format, close to the table shape.
type importedQuestion struct {
	ID             string   `json:"id"`
	Topic          string   `json:"topic"`
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  string   `json:"correct_answer"`
	IsMultiselect  bool     `json:"is_multiselect"`
	DiscussionLink string   `json:"discussion_link"`
}

// QuestionCommands returns the question-bank management commands
func QuestionCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	questionsCmd := &cobra.Command{
		Use:   "questions",
		Short: "Question bank management commands",
		Long: `Question bank management commands.

Available commands:
  import    - Import questions from a JSON file
  count     - Show how many questions are loaded`,
	}

	questionsCmd.AddCommand(importCmd(logger, db))
	questionsCmd.AddCommand(countCmd(logger, db))

	return questionsCmd
}

func importCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import questions from a JSON file",
		Long: `Import questions from a JSON file into the questions table.

The file must contain a JSON array of question objects. Every object is
validated against the import schema before any row is written; existing
questions with the same id are updated in place.

Use --dry-run to validate the file without writing.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport(logger, db, &dryRun),
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the file without writing any rows")

	return cmd
}

func countCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many questions are loaded",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			var count int
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions").Scan(&count); err != nil {
				return contextutils.WrapError(err, "failed to count questions")
			}
			logger.Info(ctx, "Question bank size", map[string]interface{}{"questions": count})
			return nil
		},
	}
}

// runImport returns a function that validates and imports a question file
func runImport(logger *observability.Logger, db *sql.DB, dryRun *bool) func(cmd *cobra.Command, args []string) error {
	return func(_ *cobra.Command, args []string) error {
		ctx := context.Background()
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to read %s", path)
		}

		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return contextutils.WrapError(err, "import file must be a JSON array of question objects")
		}
		if len(raw) == 0 {
			return contextutils.ErrorWithContextf("import file %s contains no questions", path)
		}

		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(questionSchema))
		if err != nil {
			return contextutils.WrapError(err, "failed to compile question schema")
		}

		questions := make([]importedQuestion, 0, len(raw))
		for i, item := range raw {
			result, err := schema.Validate(gojsonschema.NewBytesLoader(item))
			if err != nil {
				return contextutils.WrapErrorf(err, "schema validation failed for question %d", i)
			}
			if !result.Valid() {
				var messages []string
				for _, e := range result.Errors() {
					messages = append(messages, e.String())
				}
				return contextutils.ErrorWithContextf("question %d failed validation: %s", i, strings.Join(messages, "; "))
			}

			var q importedQuestion
			if err := json.Unmarshal(item, &q); err != nil {
				return contextutils.WrapErrorf(err, "failed to decode question %d", i)
			}
			questions = append(questions, q)
		}

		logger.Info(ctx, "Import file validated", map[string]interface{}{
			"file":      path,
			"questions": len(questions),
			"dry_run":   *dryRun,
		})
		if *dryRun {
			return nil
		}

		imported, err := insertQuestions(ctx, db, questions)
		if err != nil {
			return err
		}

		logger.Info(ctx, "Questions imported", map[string]interface{}{
			"file":      path,
			"questions": imported,
		})
		return nil
	}
}

// insertQuestions upserts the validated questions in one transaction.
func insertQuestions(ctx context.Context, db *sql.DB, questions []importedQuestion) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, topic, question, options, correct_answer, is_multiselect, discussion_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			topic = EXCLUDED.topic,
			question = EXCLUDED.question,
			options = EXCLUDED.options,
			correct_answer = EXCLUDED.correct_answer,
			is_multiselect = EXCLUDED.is_multiselect,
			discussion_link = EXCLUDED.discussion_link`)
	if err != nil {
		return 0, contextutils.WrapError(err, "failed to prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return 0, contextutils.WrapErrorf(err, "failed to encode options for question %s", q.ID)
		}
		if _, err := stmt.ExecContext(ctx,
			q.ID,
			nullableString(q.Topic),
			q.Question,
			options,
			strings.ToUpper(strings.TrimSpace(q.CorrectAnswer)),
			q.IsMultiselect,
			nullableString(q.DiscussionLink),
		); err != nil {
			return 0, contextutils.WrapErrorf(err, "failed to insert question %s", q.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, contextutils.WrapError(err, "failed to commit import")
	}
	return len(questions), nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
