package services

import (
	"strings"
	"testing"

	"certquiz/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBuildTheoryPrompt_LanguageDirective(t *testing.T) {
	q := contentTestQuestion()

	vi := BuildTheoryPrompt(q, models.LanguageVietnamese)
	assert.Contains(t, vi, "Vui lòng trả lời bằng tiếng Việt.")
	assert.Contains(t, vi, "Cơ sở lý thuyết các thuật ngữ trong câu hỏi")
	assert.Contains(t, vi, "KHÔNG dùng dấu hai chấm")

	en := BuildTheoryPrompt(q, models.LanguageEnglish)
	assert.Contains(t, en, "Please respond in English.")
	assert.Contains(t, en, "Theoretical Foundation of Question Terms")
	assert.Contains(t, en, "Do NOT use colons (:) after term names")
	assert.NotContains(t, en, "tiếng Việt")
}

func TestBuildExplanationPrompt_SectionsAndCorrectAnswer(t *testing.T) {
	q := contentTestQuestion()

	en := BuildExplanationPrompt(q, models.LanguageEnglish)
	for _, section := range []string{
		"## Question Analysis",
		"## Correct Answer Explanation",
		"## Why Other Answers Are Wrong",
		"## Common Mistakes",
		"## Tips to Remember",
	} {
		assert.Contains(t, en, section)
	}
	assert.Contains(t, en, "Why is answer B correct?")
	assert.Contains(t, en, "Correct Answer: B")
	assert.Contains(t, en, "max 500 words")
}

func TestBuildTheoryPrompt_OmitsCorrectAnswer(t *testing.T) {
	q := contentTestQuestion()

	theory := BuildTheoryPrompt(q, models.LanguageEnglish)
	assert.NotContains(t, theory, "Correct Answer:")
}

func TestFormatOptions_NewlineJoinedInOrder(t *testing.T) {
	got := FormatOptions([]string{"first", "second", "third"})
	assert.Equal(t, "first\nsecond\nthird", got)
	assert.Equal(t, 3, len(strings.Split(got, "\n")))
}
