// Package models defines data structures used throughout the certquiz backend.
package models

import (
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Language identifies the language AI study content is generated in.
type Language string

const (
	// LanguageVietnamese is the Vietnamese content language
	LanguageVietnamese Language = "vi"
	// LanguageEnglish is the English content language
	LanguageEnglish Language = "en"
)

// Valid reports whether the language is one the prompt builder knows about.
func (l Language) Valid() bool {
	return l == LanguageVietnamese || l == LanguageEnglish
}

// ContentKind identifies the flavor of AI study content for a question.
type ContentKind string

const (
	// ContentTheory is the theoretical-foundation breakdown of a question's terms
	ContentTheory ContentKind = "theory"
	// ContentExplanation is the answer walkthrough for a question
	ContentExplanation ContentKind = "explanation"
)

// Valid reports whether the kind is a known content kind.
func (k ContentKind) Valid() bool {
	return k == ContentTheory || k == ContentExplanation
}

// Question represents one certification exam question. Questions are loaded
// once at startup and never mutated afterwards.
type Question struct {
	ID             string         `json:"id" yaml:"id"`
	Topic          sql.NullString `json:"-" yaml:"topic"`
	Question       string         `json:"question" yaml:"question"`
	Options        []string       `json:"options" yaml:"options"`
	CorrectAnswer  string         `json:"correct_answer" yaml:"correct_answer"`
	IsMultiselect  bool           `json:"is_multiselect" yaml:"is_multiselect"`
	DiscussionLink sql.NullString `json:"-" yaml:"discussion_link"`
	CreatedAt      time.Time      `json:"created_at" yaml:"created_at"`
}

// NumericID returns the numeric interpretation of the question ID. IDs that
// fail to parse sort after all numeric IDs, between themselves by string order.
func (q *Question) NumericID() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(q.ID))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsAnswerCorrect compares a submitted answer against the correct answer.
// Multiselect answers encode several letters in one string; they compare as
// sets so "AC" and "CA" are equivalent.
func (q *Question) IsAnswerCorrect(answer string) bool {
	submitted := strings.ToUpper(strings.TrimSpace(answer))
	correct := strings.ToUpper(strings.TrimSpace(q.CorrectAnswer))
	if !q.IsMultiselect {
		return submitted == correct
	}

	letterSet := func(s string) map[rune]bool {
		set := make(map[rune]bool)
		for _, r := range s {
			if r >= 'A' && r <= 'Z' {
				set[r] = true
			}
		}
		return set
	}

	a, b := letterSet(submitted), letterSet(correct)
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if !b[r] {
			return false
		}
	}
	return true
}

// SortQuestionsByNumericID orders questions ascending by the numeric value of
// their ID, regardless of storage order. Non-numeric IDs sort last.
func SortQuestionsByNumericID(questions []Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		a, aok := questions[i].NumericID()
		b, bok := questions[j].NumericID()
		if aok && bok {
			return a < b
		}
		if aok != bok {
			return aok
		}
		return questions[i].ID < questions[j].ID
	})
}

// CachedContent represents one generated study artifact, addressed by
// (question, language, kind). At most one live row exists per key.
type CachedContent struct {
	ID         int         `json:"id" yaml:"id"`
	QuestionID string      `json:"question_id" yaml:"question_id"`
	Language   Language    `json:"language" yaml:"language"`
	Kind       ContentKind `json:"type" yaml:"type"`
	Content    string      `json:"content" yaml:"content"`
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
}

// ContentCacheKey builds the in-memory cache key for a generated artifact.
func ContentCacheKey(kind ContentKind, questionID string, language Language) string {
	return fmt.Sprintf("%s_%s_%s", kind, questionID, language)
}

// UserProgress is the remote last-viewed-question pointer for an identity.
// Exactly one logical row exists per user; writes upsert on user_id.
type UserProgress struct {
	UserID            string    `json:"user_id" yaml:"user_id"`
	LastQuestionIndex int       `json:"last_question_index" yaml:"last_question_index"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// AnswerSubmission records one answer a signed-in user submitted, kept as
// per-user history. Unlike the local answer log it is append-only.
type AnswerSubmission struct {
	ID         int       `json:"id" yaml:"id"`
	UserID     string    `json:"user_id" yaml:"user_id"`
	QuestionID string    `json:"question_id" yaml:"question_id"`
	Answer     string    `json:"answer" yaml:"answer"`
	IsCorrect  bool      `json:"is_correct" yaml:"is_correct"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Credential is one ordered generation API key. Label is used for logging
// only, never sent upstream.
type Credential struct {
	Label  string
	APIKey string
}
