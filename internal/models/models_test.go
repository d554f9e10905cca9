package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortQuestionsByNumericID(t *testing.T) {
	questions := []Question{
		{ID: "30"}, {ID: "4"}, {ID: "200"}, {ID: "1"},
	}
	SortQuestionsByNumericID(questions)

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"1", "4", "30", "200"}, ids)
}

func TestSortQuestionsByNumericID_NonNumericLast(t *testing.T) {
	questions := []Question{
		{ID: "beta"}, {ID: "2"}, {ID: "alpha"}, {ID: "10"},
	}
	SortQuestionsByNumericID(questions)

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"2", "10", "alpha", "beta"}, ids)
}

func TestIsAnswerCorrect_SingleChoice(t *testing.T) {
	q := Question{CorrectAnswer: "B"}

	assert.True(t, q.IsAnswerCorrect("B"))
	assert.True(t, q.IsAnswerCorrect(" b "))
	assert.False(t, q.IsAnswerCorrect("A"))
}

func TestIsAnswerCorrect_MultiselectSetComparison(t *testing.T) {
	q := Question{CorrectAnswer: "AC", IsMultiselect: true}

	assert.True(t, q.IsAnswerCorrect("AC"))
	assert.True(t, q.IsAnswerCorrect("CA"))
	assert.True(t, q.IsAnswerCorrect("ca"))
	assert.False(t, q.IsAnswerCorrect("A"))
	assert.False(t, q.IsAnswerCorrect("ABC"))
}

func TestContentCacheKey(t *testing.T) {
	assert.Equal(t, "theory_42_vi", ContentCacheKey(ContentTheory, "42", LanguageVietnamese))
	assert.Equal(t, "explanation_7_en", ContentCacheKey(ContentExplanation, "7", LanguageEnglish))
}

func TestLanguageAndKindValidation(t *testing.T) {
	assert.True(t, LanguageVietnamese.Valid())
	assert.True(t, LanguageEnglish.Valid())
	assert.False(t, Language("fr").Valid())

	assert.True(t, ContentTheory.Valid())
	assert.True(t, ContentExplanation.Valid())
	assert.False(t, ContentKind("summary").Valid())
}
